package pages

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/narvanalabs/redbutton/internal/models"
)

const redButtonClass = "h-40 w-40 rounded-full bg-red-600 text-xl uppercase shadow-lg hover:bg-red-700"

// Landing is shown to anonymous visitors. It makes no provider calls.
func Landing() templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<section class="py-16 text-center"><h1 class="text-3xl font-bold">Big Red Button</h1>`)
		h.raw(`<p class="mt-4 text-gray-600">Abort what is running and start a fresh build.</p>`)
		h.raw(`<a href="/login" class="mt-8 inline-block rounded-md bg-gray-900 px-6 py-3 font-semibold text-white">Log in</a></section>`)
		return h.err
	})
	return Layout("Welcome", nil, body)
}

// IndexData holds the authenticated home page.
type IndexData struct {
	User   *models.Identity
	Builds []models.Build
	Now    time.Time
}

// Index lists running builds next to the big red button.
func Index(data IndexData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<section class="flex flex-col items-center gap-4 py-8">`)
		h.render(PostButton("/new-build", "New build", redButtonClass))
		h.raw(`<a href="/last" class="text-sm text-gray-500 hover:text-gray-900">Latest build</a></section>`)

		h.raw(`<section><h2 class="mb-3 text-lg font-semibold">Running builds</h2>`)
		if len(data.Builds) == 0 {
			h.raw(`<p class="text-gray-500">Nothing is running.</p>`)
		} else {
			h.raw(`<ul class="divide-y rounded-md border bg-white">`)
			for i := range data.Builds {
				b := &data.Builds[i]
				h.raw(`<li class="flex items-center justify-between px-4 py-3"><a class="font-mono" href="`)
				h.text(buildPath(b.Slug))
				h.raw(`">#`)
				h.text(strconv.Itoa(b.Number))
				h.raw(` `)
				h.text(b.Branch)
				h.raw(` / `)
				h.text(b.Workflow)
				h.raw(`</a><span class="flex items-center gap-3 text-sm text-gray-500">`)
				h.text(formatDuration(b.Duration(data.Now)))
				h.raw(` `)
				h.render(StatusBadge(b.Status))
				h.raw(`</span></li>`)
			}
			h.raw(`</ul>`)
		}
		h.raw(`</section>`)
		return h.err
	})
	return Layout("Builds", data.User, body)
}

// BuildData holds the build detail page.
type BuildData struct {
	User  *models.Identity
	Build *models.Build
	Now   time.Time
}

// Build shows one build with an abort button while it runs.
func Build(data BuildData) templ.Component {
	b := data.Build
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<article class="rounded-md border bg-white p-6"><div class="flex items-center justify-between">`)
		h.raw(`<h1 class="text-2xl font-bold">Build #`)
		h.text(strconv.Itoa(b.Number))
		h.raw(`</h1>`)
		h.render(StatusBadge(b.Status))
		h.raw(`</div><dl class="mt-6 grid grid-cols-3 gap-y-2 text-sm">`)

		row := func(label, value string) {
			if value == "" {
				return
			}
			h.raw(`<dt class="text-gray-500">`)
			h.text(label)
			h.raw(`</dt><dd class="col-span-2 font-mono">`)
			h.text(value)
			h.raw(`</dd>`)
		}
		row("Slug", b.Slug)
		row("Branch", b.Branch)
		row("Workflow", b.Workflow)
		row("Commit", b.CommitHash)
		row("Message", b.CommitMessage)
		row("Triggered by", b.TriggeredBy)
		row("Triggered at", formatTime(b.TriggeredAt))
		row("Duration", formatDuration(b.Duration(data.Now)))
		row("Abort reason", b.AbortReason)
		h.raw(`</dl>`)

		if !b.Status.IsFinished() {
			h.raw(`<div class="mt-6">`)
			h.render(PostButton(buildPath(b.Slug)+"/abort", "Abort build", "bg-red-600 hover:bg-red-700"))
			h.raw(`</div>`)
		}
		h.raw(`</article>`)
		return h.err
	})
	return Layout("Build #"+strconv.Itoa(b.Number), data.User, body)
}

// ErrorData holds an error page.
type ErrorData struct {
	User      *models.Identity
	Status    int
	Message   string
	RequestID string
}

// Error renders an error page. Unauthorized pages link to the login.
func Error(data ErrorData) templ.Component {
	title := http.StatusText(data.Status)
	if title == "" {
		title = "Error"
	}
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<section class="py-16 text-center"><p class="text-5xl font-bold text-gray-300">`)
		h.text(strconv.Itoa(data.Status))
		h.raw(`</p><h1 class="mt-2 text-2xl font-semibold">`)
		h.text(title)
		h.raw(`</h1><p class="mt-4 text-gray-600">`)
		h.text(data.Message)
		h.raw(`</p>`)
		if data.Status == http.StatusUnauthorized {
			h.raw(`<a href="/login" class="mt-8 inline-block rounded-md bg-gray-900 px-6 py-3 font-semibold text-white">Log in</a>`)
		} else {
			h.raw(`<a href="/" class="mt-8 inline-block text-gray-500 hover:text-gray-900">Back to builds</a>`)
		}
		if data.RequestID != "" {
			h.raw(`<p class="mt-6 font-mono text-xs text-gray-400">request `)
			h.text(data.RequestID)
			h.raw(`</p>`)
		}
		h.raw(`</section>`)
		return h.err
	})
	return Layout(title, data.User, body)
}
