package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tnunnink/LogixHelper/datatype"
	"github.com/tnunnink/LogixHelper/logix"
	"github.com/tnunnink/LogixHelper/publish"
)

// SetValueRequest is the JSON body of POST /tags/{path}. Value may be a
// number, bool or text in any radix the member's kind accepts.
type SetValueRequest struct {
	Value interface{} `json:"value"`
}

// handleSetValue writes a member value. With ?save=true the value is also
// stored in the config so it survives a restart.
func (h *handlers) handleSetValue(w http.ResponseWriter, r *http.Request) {
	path, err := memberPath(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req SetValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	text, err := publish.ValueText(req.Value)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	current, err := h.backend.GetProject().View(path)
	if err != nil {
		h.writeError(w, errorStatus(err), err.Error())
		return
	}
	if current.Access != datatype.ReadWrite.String() {
		h.writeError(w, http.StatusForbidden, path.String()+" is "+current.Access)
		return
	}

	info, err := h.backend.GetProject().SetValue(path, text)
	if err != nil {
		h.writeError(w, errorStatus(err), err.Error())
		return
	}

	if r.URL.Query().Get("save") == "true" {
		if err := h.saveValue(path.Members()[0], path.String(), info.Text); err != nil {
			h.writeError(w, http.StatusInternalServerError, "value set but not saved: "+err.Error())
			return
		}
	}
	h.writeJSON(w, TagResponse{MemberInfo: info, Published: h.isPublished(path.Members()[0])})
}

func (h *handlers) saveValue(tagName, member, text string) error {
	cfg := h.backend.GetConfig()
	cfg.Lock()
	tc := cfg.FindTag(tagName)
	if tc == nil {
		cfg.Unlock()
		return nil
	}
	if tc.Values == nil {
		tc.Values = make(map[string]string)
	}
	tc.Values[member] = text
	return cfg.UnlockAndSave(h.backend.GetConfigPath())
}

// PublishRequest is the JSON body of PUT /publish/{tag}.
type PublishRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *handlers) handleSetPublished(w http.ResponseWriter, r *http.Request) {
	hub := h.backend.GetHub()
	if hub == nil {
		h.writeError(w, http.StatusServiceUnavailable, "publishing not configured")
		return
	}
	name, _ := url.PathUnescape(chi.URLParam(r, "tag"))
	t, ok := h.backend.GetProject().Tag(name)
	if !ok {
		h.writeError(w, http.StatusNotFound, "tag not found: "+name)
		return
	}

	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	hub.SetPublished(t.Name().String(), req.Enabled)

	cfg := h.backend.GetConfig()
	cfg.Lock()
	if tc := cfg.FindTag(t.Name().String()); tc != nil {
		tc.Publish = req.Enabled
		if err := cfg.UnlockAndSave(h.backend.GetConfigPath()); err != nil {
			h.writeError(w, http.StatusInternalServerError, "publish state not saved: "+err.Error())
			return
		}
	} else {
		cfg.Unlock()
	}

	h.writeJSON(w, map[string]interface{}{"tag": t.Name().String(), "published": req.Enabled})
}

func (h *handlers) handlePublishAll(w http.ResponseWriter, r *http.Request) {
	hub := h.backend.GetHub()
	if hub == nil {
		h.writeError(w, http.StatusServiceUnavailable, "publishing not configured")
		return
	}
	h.writeJSON(w, map[string]int{"published": hub.PublishAll()})
}

// RadixFormatRequest is the JSON body of POST /radix/format.
type RadixFormatRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Radix string `json:"radix"`
}

// RadixParseRequest is the JSON body of POST /radix/parse. Without a type
// the kind is inferred from the text.
type RadixParseRequest struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

// RadixResponse describes a parsed or formatted atomic value.
type RadixResponse struct {
	Type      string      `json:"type"`
	Radix     string      `json:"radix"`
	Value     interface{} `json:"value"`
	Text      string      `json:"text"`
	Timestamp string      `json:"timestamp"`
}

func radixResponse(a *logix.Atomic, text string) RadixResponse {
	return RadixResponse{
		Type:      a.Name(),
		Radix:     a.Radix().String(),
		Value:     a.Value(),
		Text:      text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func (h *handlers) handleRadixFormat(w http.ResponseWriter, r *http.Request) {
	var req RadixFormatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	radix, err := logix.ParseRadix(req.Radix)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := logix.FromText(req.Type, req.Value)
	if err != nil {
		h.writeError(w, errorStatus(err), err.Error())
		return
	}
	text, err := a.ToText(radix)
	if err != nil {
		h.writeError(w, errorStatus(err), err.Error())
		return
	}
	resp := radixResponse(a, text)
	resp.Radix = radix.String()
	h.writeJSON(w, resp)
}

func (h *handlers) handleRadixParse(w http.ResponseWriter, r *http.Request) {
	var req RadixParseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	var a *logix.Atomic
	var err error
	if req.Type != "" {
		a, err = logix.FromText(req.Type, req.Text)
	} else {
		a, err = logix.ParseAtomic(req.Text)
	}
	if err != nil {
		h.writeError(w, errorStatus(err), err.Error())
		return
	}
	h.writeJSON(w, radixResponse(a, a.String()))
}
