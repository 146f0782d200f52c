package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"parking-locator/internal/auth"
	"parking-locator/internal/i18n"
	"parking-locator/internal/logger"
	"parking-locator/internal/mw"
	"parking-locator/internal/store"
)

// PasswordMailer delivers password resend requests. The backend only
// records them; delivery is up to the deployment.
type PasswordMailer interface {
	ResendPassword(email string) error
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	webpush  *webpush.Options
	auth     *auth.Service
	catalog  *i18n.Catalog
	catalogs map[string]*i18n.Catalog
	mailer   PasswordMailer
	log      *logger.Logger
}

// NewHandler creates a new API handler. mailer and log may be nil.
func NewHandler(s store.Store, webpushOptions *webpush.Options, authService *auth.Service, catalog *i18n.Catalog, mailer PasswordMailer, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	if mailer == nil {
		mailer = logMailer{log: log}
	}
	if authService == nil {
		authService = auth.NewService("", 0)
	}
	catalogs := make(map[string]*i18n.Catalog)
	for _, locale := range catalog.Locales() {
		if localized, err := i18n.Load(locale); err == nil {
			catalogs[locale] = localized
		}
	}
	return &Handler{
		store:    s,
		webpush:  webpushOptions,
		auth:     authService,
		catalog:  catalog,
		catalogs: catalogs,
		mailer:   mailer,
		log:      log,
	}
}

type logMailer struct {
	log *logger.Logger
}

func (m logMailer) ResendPassword(email string) error {
	m.log.Info("password resend requested", map[string]interface{}{"email": email})
	return nil
}

// t translates key in the caller's preferred language.
func (h *Handler) t(c *gin.Context, key string) string {
	lang := strings.ToLower(c.GetHeader("Accept-Language"))
	for locale, localized := range h.catalogs {
		if strings.HasPrefix(lang, locale) {
			return localized.T(key)
		}
	}
	return h.catalog.T(key)
}

func (h *Handler) logFor(c *gin.Context) *logger.Logger {
	return mw.GetLogger(c, h.log)
}

// idParam parses a positive int64 path parameter or writes a 400.
func idParam(c *gin.Context, name, label string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + label})
		return 0, false
	}
	return id, true
}

// fail maps a store error to a JSON error response.
func (h *Handler) fail(c *gin.Context, err error, notFoundMsg string) {
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": notFoundMsg})
		return
	}
	c.Error(err)
	h.logFor(c).Error("request failed", err, map[string]interface{}{"path": c.FullPath()})
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
