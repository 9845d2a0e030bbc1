package main

// General API documentation for swaggo. Run `swag init -g cmd/ggufd/docs.go` to generate docs.
//
// @title           ggufd API
// @version         1.0
// @description     HTTP API for a local GGUF inference engine: load one model, generate text, inspect memory and backend.
//
// @contact.name   ggufd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
