package main

//go:generate swag init -g cmd/engine/main.go -o docs

// @title           TradeScript Engine API
// @version         0.1.0
// @description     Declarative trading strategy evaluation and execution engine.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
