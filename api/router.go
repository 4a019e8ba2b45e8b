package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tnunnink/LogixHelper/config"
	"github.com/tnunnink/LogixHelper/datatype"
	"github.com/tnunnink/LogixHelper/errs"
	"github.com/tnunnink/LogixHelper/project"
	"github.com/tnunnink/LogixHelper/publish"
	"github.com/tnunnink/LogixHelper/tagname"
)

// Backend provides access to the shared project state.
type Backend interface {
	GetConfig() *config.Config
	GetConfigPath() string
	GetProject() *project.Project
	GetHub() *publish.Hub // nil when nothing publishes
}

// TypeResponse is the JSON response for a data type.
type TypeResponse struct {
	Name        string           `json:"name"`
	Class       string           `json:"class"`
	Family      string           `json:"family"`
	Description string           `json:"description,omitempty"`
	Members     []MemberResponse `json:"members,omitempty"`
}

// MemberResponse is the JSON response for a type member.
type MemberResponse struct {
	Name        string `json:"name"`
	DataType    string `json:"dataType"`
	Dimensions  string `json:"dimensions,omitempty"`
	Radix       string `json:"radix"`
	Access      string `json:"access"`
	Description string `json:"description,omitempty"`
}

// TagResponse is the JSON response for a tag.
type TagResponse struct {
	project.MemberInfo
	Published bool `json:"published"`
}

// handlers holds the API handler functions.
type handlers struct {
	backend  Backend
	sessions *sessionStore
	hub      *eventHub

	changeListenerID project.ListenerID
}

// NewRouter creates the REST API router. The returned cleanup function stops
// the event stream and must be called when the router is discarded.
func NewRouter(backend Backend) (chi.Router, func()) {
	h := &handlers{
		backend:  backend,
		sessions: newSessionStore(backend.GetConfig().Web.SessionSecret),
		hub:      newEventHub(),
	}
	cleanup := h.setupSSE()

	r := chi.NewRouter()

	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	// Stateless conversions
	r.Post("/radix/format", h.handleRadixFormat)
	r.Post("/radix/parse", h.handleRadixParse)

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware)

		r.Get("/events", h.handleSSE)

		r.Get("/types", h.handleListTypes)
		r.Get("/types/{name}", h.handleType)
		r.Get("/types/{name}/tagnames", h.handleTypeTagNames)
		r.Get("/types/{name}/dependencies", h.handleTypeDependencies)
		r.Get("/definitions", h.handleDefinitions)

		r.Get("/tags", h.handleListTags)
		r.Get("/tagnames", h.handleTagNames)
		r.Get("/tags/*", h.handleMember)

		r.Group(func(r chi.Router) {
			r.Use(h.adminOnlyMiddleware)
			r.Post("/tags/*", h.handleSetValue)
			r.Put("/publish/{tag}", h.handleSetPublished)
			r.Post("/publish", h.handlePublishAll)
		})
	})

	return r, cleanup
}

func (h *handlers) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (h *handlers) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// errorStatus maps an error to the HTTP status that best describes it.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, errs.ErrLookup):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrFormat), errors.Is(err, errs.ErrRange), errors.Is(err, errs.ErrName),
		errors.Is(err, errs.ErrUnsupportedKind), errors.Is(err, errs.ErrDimensionality):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func describeType(t datatype.DataType) TypeResponse {
	resp := TypeResponse{
		Name:        t.Name(),
		Class:       t.Class().String(),
		Family:      t.Family().String(),
		Description: t.Description(),
	}
	for _, m := range t.Members() {
		mr := MemberResponse{
			Name:        m.Name,
			DataType:    m.Type.Name(),
			Radix:       m.Radix.String(),
			Access:      m.Access.String(),
			Description: m.Description,
		}
		if dims := m.Dimensions(); !dims.IsEmpty() {
			mr.Dimensions = dims.String()
			if a, ok := m.Type.(*datatype.Array); ok {
				mr.DataType = a.ElementType().Name()
			}
		}
		resp.Members = append(resp.Members, mr)
	}
	return resp
}

func (h *handlers) lookupType(w http.ResponseWriter, r *http.Request) (datatype.DataType, bool) {
	name, _ := url.PathUnescape(chi.URLParam(r, "name"))
	t, ok := h.backend.GetProject().Registry().Lookup(name)
	if !ok {
		h.writeError(w, http.StatusNotFound, "type not found: "+name)
		return nil, false
	}
	return t, true
}

func (h *handlers) handleListTypes(w http.ResponseWriter, r *http.Request) {
	types := h.backend.GetProject().Types()
	response := make([]TypeResponse, 0, len(types))
	for _, t := range types {
		response = append(response, describeType(t))
	}
	h.writeJSON(w, response)
}

func (h *handlers) handleType(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookupType(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, describeType(t))
}

func (h *handlers) handleTypeTagNames(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookupType(w, r)
	if !ok {
		return
	}
	names := datatype.TagNames(t)
	response := make([]string, len(names))
	for i, n := range names {
		response[i] = n.String()
	}
	h.writeJSON(w, response)
}

func (h *handlers) handleTypeDependencies(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookupType(w, r)
	if !ok {
		return
	}
	deps := datatype.DependentTypes(t)
	response := make([]string, len(deps))
	for i, d := range deps {
		response[i] = d.Name()
	}
	h.writeJSON(w, response)
}

// handleDefinitions exports every user-defined type as a YAML definitions
// document that Define can read back.
func (h *handlers) handleDefinitions(w http.ResponseWriter, r *http.Request) {
	var defs []datatype.Definition
	for _, t := range h.backend.GetProject().Types() {
		if t.Class() != datatype.ClassUser {
			continue
		}
		def, err := datatype.DefinitionOf(t)
		if err != nil {
			continue
		}
		defs = append(defs, def)
	}

	w.Header().Set("Content-Type", "application/yaml")
	if err := datatype.WriteDefinitions(w, defs); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *handlers) isPublished(name string) bool {
	hub := h.backend.GetHub()
	return hub != nil && hub.IsPublished(name)
}

func (h *handlers) handleListTags(w http.ResponseWriter, r *http.Request) {
	infos := h.backend.GetProject().Views()
	response := make([]TagResponse, 0, len(infos))
	for _, info := range infos {
		response = append(response, TagResponse{MemberInfo: info, Published: h.isPublished(info.Name)})
	}
	h.writeJSON(w, response)
}

func (h *handlers) handleTagNames(w http.ResponseWriter, r *http.Request) {
	names := h.backend.GetProject().Names()
	response := make([]string, len(names))
	for i, n := range names {
		response[i] = n.String()
	}
	h.writeJSON(w, response)
}

// memberPath returns the tag name from the wildcard after /tags/.
func memberPath(r *http.Request) (tagname.TagName, error) {
	raw, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		return "", err
	}
	return tagname.Parse(strings.Trim(raw, "/"))
}

func (h *handlers) handleMember(w http.ResponseWriter, r *http.Request) {
	path, err := memberPath(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	info, err := h.backend.GetProject().View(path)
	if err != nil {
		h.writeError(w, errorStatus(err), err.Error())
		return
	}
	h.writeJSON(w, TagResponse{MemberInfo: info, Published: h.isPublished(path.Members()[0])})
}
