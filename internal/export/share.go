/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/url"
	"strings"

	"overlaykit/internal/overlay"
)

var (
	// ErrLinkTooLarge is returned when the encoded share URL exceeds the
	// configured ceiling. No URL is produced.
	ErrLinkTooLarge = errors.New("share link too large")
	// ErrShareLinkInvalid wraps any failure to decode a received share link.
	ErrShareLinkInvalid = errors.New("invalid share link")
)

// Share link defaults.
const (
	DefaultShareParam     = "img"
	DefaultShareQuality   = 60
	DefaultShareMaxLength = 50000
	SharedImageName       = "shared-image"
)

// ShareOptions configures link construction.
type ShareOptions struct {
	BaseURL   string
	Param     string
	Quality   int // jpeg 1..100
	MaxLength int
}

func (o ShareOptions) withDefaults() ShareOptions {
	if o.Param == "" {
		o.Param = DefaultShareParam
	}
	if o.Quality <= 0 {
		o.Quality = DefaultShareQuality
	}
	if o.MaxLength <= 0 {
		o.MaxLength = DefaultShareMaxLength
	}
	return o
}

// ShareLink encodes img as a JPEG data URI, gzips and base64-encodes it and
// appends it to BaseURL as a query parameter.
func ShareLink(img image.Image, opt ShareOptions) (string, error) {
	opt = opt.withDefaults()
	uri, err := DataURI(img, FormatJPEG, opt.Quality)
	if err != nil {
		return "", fmt.Errorf("encode share image: %w", err)
	}
	var zbuf bytes.Buffer
	zw := gzip.NewWriter(&zbuf)
	if _, err := io.WriteString(zw, uri); err != nil {
		return "", fmt.Errorf("compress share image: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress share image: %w", err)
	}
	value := base64.StdEncoding.EncodeToString(zbuf.Bytes())

	sep := "?"
	if strings.Contains(opt.BaseURL, "?") {
		sep = "&"
	}
	link := opt.BaseURL + sep + url.QueryEscape(opt.Param) + "=" + url.QueryEscape(value)
	if len(link) > opt.MaxLength {
		return "", fmt.Errorf("%w: %d characters, limit %d", ErrLinkTooLarge, len(link), opt.MaxLength)
	}
	return link, nil
}

// DecodeShareLink reverses ShareLink. link may be a full URL or a bare
// query-string value.
func DecodeShareLink(link, param string) (*overlay.ImageHandle, error) {
	if param == "" {
		param = DefaultShareParam
	}
	value, err := shareValue(link, param)
	if err != nil {
		return nil, invalid(err)
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, invalid(fmt.Errorf("base64: %w", err))
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, invalid(fmt.Errorf("gzip: %w", err))
	}
	uri, err := io.ReadAll(zr)
	if err != nil {
		return nil, invalid(fmt.Errorf("gzip: %w", err))
	}
	payload, err := dataURIPayload(string(uri))
	if err != nil {
		return nil, invalid(err)
	}
	img, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, invalid(fmt.Errorf("image payload: %w", err))
	}
	h, err := overlay.DecodeImage(bytes.NewReader(img), SharedImageName)
	if err != nil {
		return nil, invalid(err)
	}
	return h, nil
}

func invalid(err error) error { return fmt.Errorf("%w: %v", ErrShareLinkInvalid, err) }

func shareValue(link, param string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", errors.New("empty link")
	}
	var query string
	switch {
	case strings.Contains(link, "?"):
		u, err := url.Parse(link)
		if err != nil {
			return "", fmt.Errorf("url: %w", err)
		}
		query = u.RawQuery
	case strings.HasPrefix(link, param+"="):
		query = link
	default:
		return url.QueryUnescape(link)
	}
	vals, err := url.ParseQuery(query)
	if err != nil {
		return "", fmt.Errorf("query: %w", err)
	}
	v := vals.Get(param)
	if v == "" {
		return "", fmt.Errorf("missing %q parameter", param)
	}
	return v, nil
}

func dataURIPayload(uri string) (string, error) {
	const marker = ";base64,"
	if !strings.HasPrefix(uri, "data:image/") {
		return "", errors.New("not an image data uri")
	}
	i := strings.Index(uri, marker)
	if i < 0 {
		return "", errors.New("data uri is not base64")
	}
	return uri[i+len(marker):], nil
}
