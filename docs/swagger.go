// Package docs MindScribe API
//
// @title  MindScribe API
// @version 0.1.0
// @description Shared, geotagged notes with live collaborator updates.
// @host      localhost:4000
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package docs

import (
	_ "mind-scribe/cmd/server/handlers/httperr"
	_ "mind-scribe/internal/services/auth"
	_ "mind-scribe/internal/services/notes"
)
