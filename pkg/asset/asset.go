// Package asset holds generated media and the helpers used to hand it to clients.
package asset

import (
	"encoding/base64"
	"regexp"
	"strings"
)

// GeneratedAsset is one generated image or video. URL is either a public URL or a data URI.
type GeneratedAsset struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mimeType"`
	URL      string `json:"url"`
}

// New wraps data and points URL at its data URI until it is stored somewhere public.
func New(data []byte, mimeType string) *GeneratedAsset {
	a := &GeneratedAsset{Data: data, MIMEType: mimeType}
	a.URL = a.DataURI()
	return a
}

func (a *GeneratedAsset) Base64() string {
	return base64.StdEncoding.EncodeToString(a.Data)
}

func (a *GeneratedAsset) DataURI() string {
	return "data:" + a.MIMEType + ";base64," + a.Base64()
}

// Extension returns the MIME subtype, or "jpeg" when there is none.
func Extension(mimeType string) string {
	_, sub, ok := strings.Cut(mimeType, "/")
	if !ok || sub == "" {
		return "jpeg"
	}
	if i := strings.IndexAny(sub, ";+"); i >= 0 {
		sub = sub[:i]
	}
	if sub == "" {
		return "jpeg"
	}
	return sub
}

var whitespace = regexp.MustCompile(`\s+`)

// Slug lower-cases name and replaces each run of whitespace with an underscore.
func Slug(name string) string {
	return strings.ToLower(whitespace.ReplaceAllString(name, "_"))
}

// ImageFileName is the download name for a bee's scene image.
func ImageFileName(beeName, mimeType string) string {
	return Slug(beeName) + "_scene." + Extension(mimeType)
}

// VideoFileName is the download name for a bee's animation.
func VideoFileName(beeName string) string {
	return Slug(beeName) + "_animation.mp4"
}
