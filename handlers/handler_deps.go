package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"salescoach/config"
	"salescoach/internal/billing"
	"salescoach/internal/coach"
	"salescoach/internal/emailer"
	"salescoach/internal/storage"
	"salescoach/internal/store"
)

// ApplicationHandler holds shared dependencies for handlers.
type ApplicationHandler struct {
	Store    store.Store
	Storage  storage.ObjectStorage
	Coach    coach.Coach
	Emailer  emailer.Emailer
	Billing  billing.Billing
	Logger   *logrus.Logger
	Validate *validator.Validate
	Config   *config.Config
}

// NewApplicationHandler creates a new ApplicationHandler with the given dependencies.
func NewApplicationHandler(st store.Store, objStorage storage.ObjectStorage, co coach.Coach, em emailer.Emailer, bi billing.Billing, logger *logrus.Logger, cfg *config.Config) *ApplicationHandler {
	return &ApplicationHandler{
		Store:    st,
		Storage:  objStorage,
		Coach:    co,
		Emailer:  em,
		Billing:  bi,
		Logger:   logger,
		Validate: validator.New(),
		Config:   cfg,
	}
}
