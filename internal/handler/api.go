package handler

import (
	"github.com/habitforge/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db      *gorm.DB
	habits  *service.HabitService
	sync    *service.SyncService
	advisor service.DifficultyAdvisor
}

// NewAPI constructs a handler set with shared services.
func NewAPI(db *gorm.DB) *API {
	return &API{
		db:      db,
		habits:  service.NewHabitService(db),
		sync:    service.NewSyncService(db),
		advisor: service.NewRuleAdvisor(),
	}
}
