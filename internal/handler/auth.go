package handler

import (
	"net/http"

	"github.com/renzo-dev/accounts/shared/domain"
	internal_errors "github.com/renzo-dev/accounts/shared/errors"
	"github.com/renzo-dev/accounts/shared/utils"
)

type registrationRequest struct {
	Email     string `validate:"required,email" json:"email"`
	Password  string `validate:"required,min=8" json:"password"`
	FirstName string `validate:"required" json:"firstname"`
	LastName  string `validate:"required" json:"lastname"`
}

type authenticationRequest struct {
	Email    string `validate:"required,email" json:"email"`
	Password string `validate:"required" json:"password"`
}

type authenticationResponse struct {
	Token string `json:"token"`
}

// Register accepts a registration and replies 202: the account exists but
// stays disabled until the emailed code is used.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registrationRequest
	if err := utils.DecodeValidate(r.Body, &req); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	err := h.auth.Register(domain.Registration{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		utils.WriteErrorAndStatusCode(w, &internal_errors.ErrorWithStatusCode{
			Message:    "Missing activation code",
			StatusCode: http.StatusBadRequest,
			Kind:       internal_errors.KindValidation,
		})
		return
	}

	if err := h.auth.Activate(code); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Account activated. You can login now"))
}

func (h *Handler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticationRequest
	if err := utils.DecodeValidate(r.Body, &req); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	token, err := h.auth.Authenticate(domain.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	writeJSON(w, authenticationResponse{Token: token})
}
