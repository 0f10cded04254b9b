package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"racoonsmeal/internal/middleware"
	"racoonsmeal/internal/model"
	"racoonsmeal/internal/service"
	"racoonsmeal/pkg/apierror"
)

const (
	maxJSONBody      = 1 << 20
	multipartMemory  = 1 << 20
	pictureFormField = "profile_picture"
)

type ProfileHandler struct {
	service        *service.ProfileService
	maxPictureSize int64
}

func NewProfileHandler(service *service.ProfileService, maxPictureSize int64) *ProfileHandler {
	return &ProfileHandler{service: service, maxPictureSize: maxPictureSize}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Get(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// Post provisions a blank profile for an empty JSON body and completes the profile
// for a multipart or non-empty JSON body. Only the owner may write.
func (h *ProfileHandler) Post(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	username := chi.URLParam(r, "username")
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, errNotAuthenticated)
		return
	}
	if !strings.EqualFold(claims.Username, username) {
		writeError(w, errPermissionDenied)
		return
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		h.complete(w, r, username)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		writeError(w, errMalformedJSON)
		return
	}

	var raw map[string]json.RawMessage
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			writeError(w, errMalformedJSON)
			return
		}
	}

	if len(raw) == 0 {
		h.provision(w, r, username)
		return
	}

	var fields model.ProfileFields
	if err := json.Unmarshal(body, &fields); err != nil {
		writeError(w, errMalformedJSON)
		return
	}

	profile, err := h.service.Complete(r.Context(), username, service.ProfileInput{Fields: fields})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) provision(w http.ResponseWriter, r *http.Request, username string) {
	profile, created, err := h.service.Provision(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, profile)
}

func (h *ProfileHandler) complete(w http.ResponseWriter, r *http.Request, username string) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxPictureSize+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, apierror.New("request_too_large", "Request body too large.", "", http.StatusRequestEntityTooLarge))
			return
		}
		writeError(w, apierror.New("parse_error", "Multipart form parse error.", "", http.StatusBadRequest))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	fields, problems := parseProfileForm(r)
	if len(problems) > 0 {
		writeError(w, apierror.Validation(problems))
		return
	}

	in := service.ProfileInput{Fields: fields}
	if file, header, err := r.FormFile(pictureFormField); err == nil {
		defer file.Close()
		if header.Size > h.maxPictureSize {
			writeError(w, apierror.Validation(map[string][]string{
				pictureFormField: {"The uploaded picture is too large."},
			}))
			return
		}
		in.Picture = file
	} else if !errors.Is(err, http.ErrMissingFile) {
		writeError(w, apierror.New("parse_error", "Multipart form parse error.", "", http.StatusBadRequest))
		return
	}

	profile, err := h.service.Complete(r.Context(), username, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func parseProfileForm(r *http.Request) (model.ProfileFields, map[string][]string) {
	problems := map[string][]string{}
	fields := model.ProfileFields{
		Bio:           r.FormValue("bio"),
		Gender:        r.FormValue("gender"),
		ActivityLevel: r.FormValue("activity_level"),
		Goal:          r.FormValue("goal"),
	}

	if raw := strings.TrimSpace(r.FormValue("age")); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil {
			problems["age"] = []string{"A valid integer is required."}
		}
		fields.Age = age
	}

	parseNumber := func(name string, target *float64) {
		raw := strings.TrimSpace(r.FormValue(name))
		if raw == "" {
			return
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			problems[name] = []string{"A valid number is required."}
			return
		}
		*target = value
	}
	parseNumber("height_cm", &fields.HeightCM)
	parseNumber("weight_kg", &fields.WeightKG)

	return fields, problems
}
