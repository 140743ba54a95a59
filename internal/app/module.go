// Package app mounts the feature modules that make up the HTTP API.
package app

import (
	"github.com/gin-gonic/gin"

	"github.com/jgirmay/alif24/internal/common/middleware"
)

// Module is a feature package that contributes routes.
// Routes are registered relative to the API root, e.g. /api/v1.
type Module interface {
	RegisterRoutes(r gin.IRouter, g middleware.Guards)
}

// Metadata describes a mounted module for discovery.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)
