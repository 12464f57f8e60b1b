package httpserver

import (
	"net/http"
	"time"
)

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeValid(r, &req); err != nil {
		writeDomainErr(w, err)
		return
	}
	id, tok, err := h.Auth.Register(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	h.setSession(w, tok)
	writeJSON(w, http.StatusOK, map[string]string{"userId": id})
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeValid(r, &req); err != nil {
		writeDomainErr(w, err)
		return
	}
	id, tok, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	h.setSession(w, tok)
	writeJSON(w, http.StatusOK, map[string]string{"userId": id})
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) validateToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"userId": UserID(r)})
}

func (h *Handlers) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int((24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   h.AppEnv != "dev" && h.AppEnv != "development",
		SameSite: http.SameSiteLaxMode,
	})
}
