package main

// General API documentation for swaggo. Regenerate with
// `swag init -g cmd/sqlcoderd/docs.go -o docs`.
//
// @title           sqlcoderd API
// @version         1.0
// @description     HTTP API for text-to-SQL generation served by a supervised text-generation-inference engine.
//
// @contact.name   sqlcoderd maintainers
// @contact.url    https://github.com/your-org/sqlcoderd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
