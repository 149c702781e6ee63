package pages

import (
	"context"
	"io"
	"time"

	"github.com/a-h/templ"
	twmerge "github.com/Oudwins/tailwind-merge-go"

	"github.com/narvanalabs/redbutton/internal/models"
)

const badgeBase = "inline-flex items-center rounded-full px-2.5 py-0.5 text-xs font-medium bg-gray-100 text-gray-800"

func badgeClass(status models.BuildStatus) string {
	switch status {
	case models.BuildStatusNotFinished:
		return twmerge.Merge(badgeBase, "bg-amber-100 text-amber-800 animate-pulse")
	case models.BuildStatusSuccess:
		return twmerge.Merge(badgeBase, "bg-green-100 text-green-800")
	case models.BuildStatusFailed:
		return twmerge.Merge(badgeBase, "bg-red-100 text-red-800")
	case models.BuildStatusAborted, models.BuildStatusAbortedWithSuccess:
		return twmerge.Merge(badgeBase, "bg-slate-200 text-slate-700")
	default:
		return badgeBase
	}
}

// StatusBadge renders a coloured status label.
func StatusBadge(status models.BuildStatus) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<span class="`)
		h.text(badgeClass(status))
		h.raw(`">`)
		h.text(status.String())
		h.raw(`</span>`)
		return h.err
	})
}

const buttonBase = "inline-flex items-center justify-center rounded-md px-4 py-2 text-sm font-semibold shadow-sm bg-gray-800 text-white hover:bg-gray-700"

// PostButton renders a form with a single submit button.
func PostButton(action, label, extraClass string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<form method="post" action="`)
		h.text(action)
		h.raw(`"><button type="submit" class="`)
		h.text(twmerge.Merge(buttonBase, extraClass))
		h.raw(`">`)
		h.text(label)
		h.raw(`</button></form>`)
		return h.err
	})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
