package main

import (
	"browser-agent/internal/bootstrap"
)

func main() {
	bootstrap.NewApp().Run()
}
