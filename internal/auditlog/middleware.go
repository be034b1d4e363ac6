package auditlog

import (
	"bufio"
	"bytes"
	"compress/flate"
	"compress/gzip"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Middleware journals every request not listed in Config.SkipPaths.
// Errors returned by the handler chain are rendered through c.Error before
// the entry is completed so the recorded status is the one sent.
func Middleware(logger LoggerInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if logger == nil || !logger.Config().Enabled {
				return next(c)
			}

			cfg := logger.Config()
			req := c.Request()
			if cfg.skips(req.URL.Path) {
				return next(c)
			}

			start := time.Now()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = c.Response().Header().Get(echo.HeaderXRequestID)
			}

			entry := &LogEntry{
				ID:        uuid.NewString(),
				Timestamp: start,
				Method:    req.Method,
				Path:      req.URL.Path,
				RequestID: requestID,
				ClientIP:  c.RealIP(),
				Data: &LogData{
					UserAgent:   req.UserAgent(),
					Query:       req.URL.RawQuery,
					Accept:      req.Header.Get(echo.HeaderAccept),
					ContentType: req.Header.Get(echo.HeaderContentType),
				},
			}

			if cfg.LogHeaders {
				entry.Data.RequestHeaders = extractHeaders(req.Header)
			}

			if cfg.LogBodies && req.Body != nil && req.ContentLength != 0 {
				if req.ContentLength > MaxBodyCapture {
					entry.Data.RequestBodyTooBigToHandle = true
				} else if bodyBytes, err := io.ReadAll(io.LimitReader(req.Body, MaxBodyCapture+1)); err == nil {
					if len(bodyBytes) > MaxBodyCapture {
						entry.Data.RequestBodyTooBigToHandle = true
					} else {
						decoded, _ := decompressBody(bodyBytes, req.Header.Get(echo.HeaderContentEncoding))
						entry.Data.RequestBody = bodyValue(decoded)
					}
					req.Body = io.NopCloser(io.MultiReader(bytes.NewReader(bodyBytes), req.Body))
				}
			}

			c.Set(string(LogEntryKey), entry)

			var responseCapture *responseBodyCapture
			if cfg.LogBodies {
				responseCapture = &responseBodyCapture{
					ResponseWriter: c.Response().Writer,
					body:           &bytes.Buffer{},
				}
				c.Response().Writer = responseCapture
			}

			if err := next(c); err != nil {
				c.Error(err)
			}

			entry.DurationNs = time.Since(start).Nanoseconds()
			entry.Route = c.Path()
			entry.StatusCode = c.Response().Status
			if entry.RequestID == "" {
				entry.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)
			}

			if cfg.LogHeaders {
				entry.Data.ResponseHeaders = extractHeaders(c.Response().Header())
			}

			if responseCapture != nil && responseCapture.body.Len() > 0 {
				entry.Data.ResponseBodyTooBigToHandle = responseCapture.truncated
				body := responseCapture.body.Bytes()
				if !responseCapture.truncated {
					body, _ = decompressBody(body, c.Response().Header().Get(echo.HeaderContentEncoding))
				}
				entry.Data.ResponseBody = bodyValue(body)
			}

			logger.Write(entry)
			return nil
		}
	}
}

// bodyValue keeps JSON bodies as decoded values and everything else as a
// valid UTF-8 string.
func bodyValue(b []byte) any {
	var parsed any
	if err := json.Unmarshal(b, &parsed); err == nil {
		return parsed
	}
	return toValidUTF8String(b)
}

// responseBodyCapture wraps http.ResponseWriter to capture the response body.
type responseBodyCapture struct {
	http.ResponseWriter
	body      *bytes.Buffer
	truncated bool
}

func (r *responseBodyCapture) Write(b []byte) (int, error) {
	if room := MaxBodyCapture - r.body.Len(); room > 0 {
		if len(b) > room {
			r.body.Write(b[:room])
			r.truncated = true
		} else {
			r.body.Write(b)
		}
	} else if len(b) > 0 {
		r.truncated = true
	}
	return r.ResponseWriter.Write(b)
}

// Flush implements http.Flusher when the wrapped writer does.
func (r *responseBodyCapture) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack implements http.Hijacker when the wrapped writer does.
func (r *responseBodyCapture) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := r.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// extractHeaders takes the first value of each header and redacts
// sensitive ones.
func extractHeaders(headers map[string][]string) map[string]string {
	result := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) > 0 {
			result[key] = values[0]
		}
	}
	return RedactHeaders(result)
}

func entryFromContext(c echo.Context) *LogEntry {
	entry, ok := c.Get(string(LogEntryKey)).(*LogEntry)
	if !ok || entry == nil || entry.Data == nil {
		return nil
	}
	return entry
}

// EnrichEntry records which entity a request addressed.
func EnrichEntry(c echo.Context, kind, id string) {
	if entry := entryFromContext(c); entry != nil {
		entry.Data.EntityKind = kind
		entry.Data.EntityID = id
	}
}

// EnrichEntryWithError records the error type and messages sent to the client.
func EnrichEntryWithError(c echo.Context, errorType string, messages []string) {
	if entry := entryFromContext(c); entry != nil {
		entry.Data.ErrorType = errorType
		entry.Data.ErrorMessages = append([]string(nil), messages...)
	}
}

// toValidUTF8String replaces invalid UTF-8 so MongoDB accepts the value.
func toValidUTF8String(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

// decompressBody decodes body according to a Content-Encoding header value.
// The body comes back unchanged when the encoding is absent, unsupported or
// the data does not decode.
func decompressBody(body []byte, contentEncoding string) ([]byte, bool) {
	if len(body) == 0 || contentEncoding == "" {
		return body, false
	}

	encoding := strings.ToLower(strings.TrimSpace(strings.Split(contentEncoding, ",")[0]))
	if encoding == "identity" || encoding == "" {
		return body, false
	}

	var (
		reader io.ReadCloser
		err    error
	)
	switch encoding {
	case "gzip":
		reader, err = gzip.NewReader(bytes.NewReader(body))
	case "deflate":
		reader = flate.NewReader(bytes.NewReader(body))
	case "br":
		reader = io.NopCloser(brotli.NewReader(bytes.NewReader(body)))
	default:
		return body, false
	}
	if err != nil {
		return body, false
	}
	defer reader.Close()

	decompressed, err := io.ReadAll(io.LimitReader(reader, maxDecompressedSize))
	if err != nil {
		return body, false
	}
	return decompressed, true
}
