// README: Business settings handlers: public read, owner merge-on-write update.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"waterline/internal/modules/settings"
)

type SettingsHandler struct {
	settings *settings.Service
}

func NewSettingsHandler(svc *settings.Service) *SettingsHandler {
	return &SettingsHandler{settings: svc}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	s, err := h.settings.Get(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, s)
}

// Put merges the provided fields into the singleton; absent fields are left
// untouched.
func (h *SettingsHandler) Put(c *gin.Context) {
	var u settings.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	s, err := h.settings.Update(c.Request.Context(), u)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, s)
}
