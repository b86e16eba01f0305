package registry

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"time"
)

// writeRSS renders a feed as RSS 2.0, the same surface the real sources the
// registry stands in for would serve.
func writeRSS(f *Feed) string {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	writeElement(&buf, "title", f.Title, 4)
	writeElement(&buf, "link", f.URL, 4)
	writeElement(&buf, "description", fmt.Sprintf("Local test feed %s", f.ID), 4)

	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(f.URL)))

	lastBuildDate := time.Now().UTC()
	if len(f.Items) > 0 {
		lastBuildDate = f.Items[len(f.Items)-1].PublishedAt
	}
	writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)

	for _, item := range f.Items {
		writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String()
}

func writeItem(buf *bytes.Buffer, item Item) {
	buf.WriteString("    <item>\n")

	buf.WriteString(`      <guid isPermaLink="false">`)
	xml.EscapeText(buf, []byte(item.ID))
	buf.WriteString("</guid>\n")

	writeElement(buf, "title", item.Title, 6)
	writeElement(buf, "link", item.PermalinkURL, 6)
	writeElement(buf, "description", item.Summary, 6)

	if !item.PublishedAt.IsZero() {
		writeElement(buf, "pubDate", item.PublishedAt.Format(time.RFC1123Z), 6)
	}

	buf.WriteString("    </item>\n")
}

func writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
