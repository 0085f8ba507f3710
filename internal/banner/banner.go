package banner

import (
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Version of the slackquote binary
const Version = "1.1.0"

const art = `
     _            _                       _
 ___| | __ _  ___| | ____ _ _   _  ___ | |_ ___
/ __| |/ _' |/ __| |/ / _' | | | |/ _ \| __/ _ \
\__ \ | (_| | (__|   < (_| | |_| | (_) | ||  __/
|___/_|\__,_|\___|_|\_\__, |\__,_|\___/ \__\___|
                         |_|
`

// Info is the runtime summary printed under the art
type Info struct {
	Cron     string
	Timezone string
	NextRun  time.Time
	Listen   string
}

// RGB is a 24-bit terminal color
type RGB struct {
	R, G, B uint8
}

// Sprint wraps text in the ANSI escape for c
func (c RGB) Sprint(text string) string {
	return fmt.Sprintf("\033[38;2;%d;%d;%dm%s\033[0m", c.R, c.G, c.B, text)
}

// lerp moves from c toward end by t in [0,1]
func (c RGB) lerp(end RGB, t float64) RGB {
	mix := func(a, b uint8) uint8 { return uint8(float64(a) + (float64(b)-float64(a))*t) }
	return RGB{mix(c.R, end.R), mix(c.G, end.G), mix(c.B, end.B)}
}

func randomColor() RGB {
	return RGB{uint8(rand.IntN(256)), uint8(rand.IntN(256)), uint8(rand.IntN(256))}
}

// gradient colors each rune of text between two random colors
func gradient(text string) string {
	start, end := randomColor(), randomColor()
	runes := []rune(text)

	var b strings.Builder
	for i, r := range runes {
		if r == '\n' || r == ' ' {
			b.WriteRune(r)
			continue
		}
		b.WriteString(start.lerp(end, float64(i)/float64(len(runes))).Sprint(string(r)))
	}
	return b.String()
}

// Print writes the banner and the schedule summary unless silence is set
func Print(w io.Writer, info Info, silence bool) {
	if silence {
		return
	}
	fmt.Fprintln(w, gradient(art))
	fmt.Fprint(w, Summary(info, time.Now()))
}

// Summary renders the plain-text schedule block
func Summary(info Info, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "slackquote v%s\n", Version)
	b.WriteString("== Schedule ===================================\n")
	fmt.Fprintf(&b, "Cron:      %s\n", info.Cron)
	fmt.Fprintf(&b, "Timezone:  %s\n", info.Timezone)
	if !info.NextRun.IsZero() {
		fmt.Fprintf(&b, "Next run:  %s (%s)\n", info.NextRun.Format(time.RFC1123), humanize.RelTime(now, info.NextRun, "from now", "ago"))
	}
	if info.Listen != "" {
		fmt.Fprintf(&b, "Ops:       http://%s\n", info.Listen)
	} else {
		b.WriteString("Ops:       disabled\n")
	}
	return b.String()
}
