package main

import "paycore/internal/app/server"

func main() {
	server.Run()
}
