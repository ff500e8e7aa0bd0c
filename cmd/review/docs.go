package main

// @title Movie Review Service API
// @version 1.0
// @description Reviews of movies and series with JWT authentication and full observability (Prometheus, Jaeger, Kafka)

// @contact.name API Support
// @contact.email support@example.com

// @license.name MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @tag.name Auth
// @tag.description Registration and login

// @tag.name Reviews
// @tag.description Review management and content summaries

// @tag.name Health
// @tag.description Health check endpoints
