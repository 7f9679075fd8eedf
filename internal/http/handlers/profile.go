package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/taskhub/internal/apperr"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/http/middlewares"
	"github.com/geocoder89/taskhub/internal/repo"
	"github.com/geocoder89/taskhub/internal/security"
	"github.com/gin-gonic/gin"
)

var ErrWrongPassword = apperr.Authentication("wrong_password", "Ancien mot de passe incorrect")

type ProfileHandler struct {
	users repo.Users
	creds security.CredentialVerifier
}

func NewProfileHandler(users repo.Users, creds security.CredentialVerifier) *ProfileHandler {
	return &ProfileHandler{users: users, creds: creds}
}

type PhotoRequest struct {
	PhotoProfile *string `json:"photo_profile"`
}

type PasswordRequest struct {
	AncienPassword  string `json:"ancien_password"`
	NouveauPassword string `json:"nouveau_password"`
}

func (h *ProfileHandler) Profile(ctx *gin.Context) {
	caller, ok := middlewares.CallerFrom(ctx)
	if !ok {
		RespondErr(ctx, ErrUserNotFound)
		return
	}
	ctx.JSON(http.StatusOK, caller.Profile())
}

// UpdatePhoto sets the profile photo; an empty value restores the avatar.
func (h *ProfileHandler) UpdatePhoto(ctx *gin.Context) {
	var req PhotoRequest
	if !BindJSONOr(ctx, &req, user.ErrMissingFields) {
		return
	}
	if req.PhotoProfile == nil {
		RespondErr(ctx, user.ErrMissingFields.With("champ", "photo_profile"))
		return
	}

	var photo *string
	if p := strings.TrimSpace(*req.PhotoProfile); p != "" {
		photo = &p
	}

	caller, _ := middlewares.CallerFrom(ctx)

	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	updated, err := h.users.UpdatePhoto(cctx, caller.ID, photo)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondMessage(ctx, http.StatusOK, "Profil mis à jour avec succès", gin.H{"user": updated.Profile()})
}

func (h *ProfileHandler) ChangePassword(ctx *gin.Context) {
	var req PasswordRequest
	if !BindJSONOr(ctx, &req, user.ErrMissingFields) {
		return
	}
	if req.AncienPassword == "" {
		RespondErr(ctx, user.ErrMissingFields.With("champ", "ancien_password"))
		return
	}
	if err := user.ValidatePassword(req.NouveauPassword); err != nil {
		RespondErr(ctx, err)
		return
	}

	caller, _ := middlewares.CallerFrom(ctx)
	if err := h.creds.Verify(caller.PasswordHash, req.AncienPassword); err != nil {
		RespondErr(ctx, ErrWrongPassword)
		return
	}

	hash, err := h.creds.Hash(req.NouveauPassword)
	if err != nil {
		RespondErr(ctx, apperr.Internal("Impossible de modifier le mot de passe", err))
		return
	}

	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	if err := h.users.UpdatePassword(cctx, caller.ID, hash); err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondMessage(ctx, http.StatusOK, "Mot de passe modifié avec succès", nil)
}
