package main

import "github.com/fr4nk3nst1ner/slackquote/internal/app"

func main() {
	app.Execute()
}
