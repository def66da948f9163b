package web

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"habitpet/internal/core"
	"habitpet/internal/i18n"
	"habitpet/internal/incubator"
	"habitpet/internal/inventory"
	"habitpet/internal/missions"
	"habitpet/internal/slot"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
)

const sessionName = "habitpet-session"
const sessionLocaleKey = "locale"
const sessionFlashKey = "flash"

// Server represents the HTTP server.
type Server struct {
	service      *core.Service
	inv          *inventory.Inventory
	missions     *missions.Tracker
	slot         *slot.Machine
	incubator    *incubator.Incubator
	sessionStore *sessions.CookieStore
	translator   *i18n.Translator
	templatesDir string
}

// Deps bundles the subsystems the handlers reach into.
type Deps struct {
	Service   *core.Service
	Inventory *inventory.Inventory
	Missions  *missions.Tracker
	Slot      *slot.Machine
	Incubator *incubator.Incubator
}

// NewServer creates a new Server instance.
func NewServer(deps Deps, sessionSecret, localesDir, templatesDir, defaultLocale string) (*Server, error) {
	store := sessions.NewCookieStore([]byte(sessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	translator, err := i18n.NewTranslator(localesDir, defaultLocale)
	if err != nil {
		log.Printf("Warning: failed to load locales: %v", err)
		translator = i18n.NewFallback(defaultLocale)
	}

	return &Server{
		service:      deps.Service,
		inv:          deps.Inventory,
		missions:     deps.Missions,
		slot:         deps.Slot,
		incubator:    deps.Incubator,
		sessionStore: store,
		translator:   translator,
		templatesDir: templatesDir,
	}, nil
}

// Translator exposes the i18n translator (useful for the bot).
func (s *Server) Translator() *i18n.Translator {
	return s.translator
}

// Router creates and configures the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	fileServer := http.FileServer(http.Dir("static"))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	r.Get("/", s.handleIndex)
	r.Get("/locale", s.handleSetLocale)

	// Page routes
	r.Post("/pages/create", s.handleCreatePage)
	r.Post("/pages/{pageID}/rename", s.handleRenamePage)
	r.Post("/pages/{pageID}/delete", s.handleDeletePage)
	r.Post("/pages/{pageID}/select", s.handleSelectPage)
	r.Post("/pages/{pageID}/view", s.handleSetViewMode)

	// List routes
	r.Post("/lists/create", s.handleCreateList)
	r.Post("/lists/{listID}/update", s.handleUpdateList)
	r.Post("/lists/{listID}/delete", s.handleDeleteList)
	r.Post("/lists/{listID}/select", s.handleSelectList)
	r.Post("/lists/{listID}/confirm", s.handleConfirmCompletion)

	// Task routes
	r.Post("/lists/{listID}/tasks/create", s.handleCreateTask)
	r.Post("/lists/{listID}/tasks/{taskID}/toggle", s.handleToggleTask)
	r.Post("/lists/{listID}/tasks/{taskID}/delete", s.handleDeleteTask)

	// Companion feature routes
	r.Post("/slot/spin", s.handleSlotSpin)
	r.Post("/missions/claim", s.handleClaimMissions)
	r.Post("/incubator/select", s.handleIncubatorSelect)

	return r
}

// detectLocale picks locale from session then Accept-Language with fallback
// to the translator default.
func (s *Server) detectLocale(r *http.Request) string {
	if session, err := s.sessionStore.Get(r, sessionName); err == nil {
		if l, ok := session.Values[sessionLocaleKey].(string); ok && l != "" {
			return l
		}
	}
	al := strings.ToLower(r.Header.Get("Accept-Language"))
	if strings.HasPrefix(al, "pt") && s.translator.Has("pt") {
		return "pt"
	}
	return "en"
}

// handleSetLocale stores locale in session and redirects back.
func (s *Server) handleSetLocale(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("lang")
	if !s.translator.Has(lang) {
		lang = "en"
	}
	if session, err := s.sessionStore.Get(r, sessionName); err == nil {
		session.Values[sessionLocaleKey] = lang
		_ = session.Save(r, w)
	}
	ref := r.Header.Get("Referer")
	if ref == "" {
		ref = "/"
	}
	http.Redirect(w, r, ref, http.StatusSeeOther)
}

// flash queues a one-shot message (slot results, hatch announcements, errors).
func (s *Server) flash(w http.ResponseWriter, r *http.Request, msg string) {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return
	}
	session.Values[sessionFlashKey] = msg
	if err := session.Save(r, w); err != nil {
		log.Printf("Warning: failed to save flash: %v", err)
	}
}

// takeFlash pops the queued message, if any.
func (s *Server) takeFlash(w http.ResponseWriter, r *http.Request) string {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return ""
	}
	msg, _ := session.Values[sessionFlashKey].(string)
	if msg != "" {
		delete(session.Values, sessionFlashKey)
		_ = session.Save(r, w)
	}
	return msg
}

// renderTemplate parses layout.html together with the specific page template
// so each page supplies its own "content" block.
func (s *Server) renderTemplate(w http.ResponseWriter, name string, locale string, data interface{}) {
	layoutPath := filepath.Join(s.templatesDir, "layout.html")
	pagePath := filepath.Join(s.templatesDir, name)

	funcMap := template.FuncMap{
		"t": func(key string) string {
			return s.translator.T(locale, key)
		},
	}

	tmpl, err := template.New(filepath.Base(layoutPath)).Funcs(funcMap).ParseFiles(layoutPath, pagePath)
	if err != nil {
		log.Printf("ERROR parsing templates for %s: %v", name, err)
		http.Error(w, fmt.Sprintf("Template parsing error: %v", err), http.StatusInternalServerError)
		return
	}

	if err := tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		log.Printf("ERROR rendering template %s: %v", name, err)
		http.Error(w, fmt.Sprintf("Template error: %v", err), http.StatusInternalServerError)
	}
}
