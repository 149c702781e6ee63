package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/narvanalabs/redbutton/internal/models"
)

// Layout wraps body in the page chrome. user may be nil.
func Layout(title string, user *models.Identity, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<!doctype html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(` · Big Red Button</title>`)
		h.raw(`<script src="https://cdn.tailwindcss.com"></script></head>`)
		h.raw(`<body class="min-h-screen bg-gray-50 text-gray-900">`)
		h.raw(`<header class="border-b bg-white"><div class="mx-auto flex max-w-4xl items-center justify-between px-4 py-3">`)
		h.raw(`<a href="/" class="font-bold text-red-600">Big Red Button</a>`)
		if user != nil {
			h.raw(`<div class="flex items-center gap-3 text-sm">`)
			if user.Picture != "" {
				h.raw(`<img class="h-8 w-8 rounded-full" alt="" src="`)
				h.text(string(templ.URL(user.Picture)))
				h.raw(`">`)
			}
			h.raw(`<span>`)
			h.text(user.DisplayName())
			h.raw(`</span><a class="text-gray-500 hover:text-gray-900" href="/logout">Log out</a></div>`)
		}
		h.raw(`</div></header><main class="mx-auto max-w-4xl px-4 py-8">`)
		h.render(body)
		h.raw(`</main></body></html>`)
		return h.err
	})
}
