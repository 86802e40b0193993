package script

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dop251/goja"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
)

var errDomainNotAllowed = errors.New("domain is not in the allowed domains list")

// injectHostAPIs sets up the kino.* globals available to scripts.
func injectHostAPIs(p *Provider) error {
	kinoObj := p.vm.NewObject()
	if err := p.vm.Set("kino", kinoObj); err != nil {
		return errors.Wrap(err, "failed to set kino global")
	}
	if err := injectLogNamespace(p, kinoObj); err != nil {
		return err
	}
	return injectHTTPNamespace(p, kinoObj)
}

// injectLogNamespace sets up kino.log with debug/info/warn/error methods. Messages
// go to the logger of the running call.
func injectLogNamespace(p *Provider, kinoObj *goja.Object) error {
	logObj := p.vm.NewObject()
	if err := kinoObj.Set("log", logObj); err != nil {
		return errors.Wrap(err, "failed to set kino.log")
	}

	levels := map[string]func(log logger.Logger, msg string, data logger.Data){
		"debug": func(log logger.Logger, msg string, data logger.Data) { log.Debug(msg, data) },
		"info":  func(log logger.Logger, msg string, data logger.Data) { log.Info(msg, data) },
		"warn":  func(log logger.Logger, msg string, data logger.Data) { log.Warn(msg, data) },
		"error": func(log logger.Logger, msg string, data logger.Data) { log.Error(msg, data) },
	}
	for level, write := range levels {
		write := write
		logObj.Set(level, func(call goja.FunctionCall) goja.Value { //nolint:errcheck
			write(logger.FromContext(p.ctx), call.Argument(0).String(), logger.Data{"provider": p.Slug()})
			return goja.Undefined()
		})
	}
	return nil
}

// injectHTTPNamespace sets up kino.http.fetch. Requests are checked against the
// manifest's httpAccess domains and carry the context of the running call.
func injectHTTPNamespace(p *Provider, kinoObj *goja.Object) error {
	vm := p.vm
	httpObj := vm.NewObject()
	if err := kinoObj.Set("http", httpObj); err != nil {
		return errors.Wrap(err, "failed to set kino.http")
	}

	var allowedDomains []string
	if p.manifest.HTTPAccess != nil {
		allowedDomains = p.manifest.HTTPAccess.Domains
	}
	client := &http.Client{
		CheckRedirect: func(req *http.Request, _ []*http.Request) error {
			if err := validateDomain(req.URL.Host, allowedDomains); err != nil {
				return errors.Wrap(err, "redirect blocked")
			}
			return nil
		},
	}

	httpObj.Set("fetch", func(call goja.FunctionCall) goja.Value { //nolint:errcheck
		if len(call.Arguments) < 1 {
			panic(vm.ToValue("kino.http.fetch: url argument is required"))
		}
		rawURL := call.Argument(0).String()

		method := http.MethodGet
		headers := map[string]string{}
		var body io.Reader
		if opts := call.Argument(1); !goja.IsUndefined(opts) && !goja.IsNull(opts) {
			optsObj := opts.ToObject(vm)
			if m := optsObj.Get("method"); m != nil && !goja.IsUndefined(m) {
				method = strings.ToUpper(m.String())
			}
			if h := optsObj.Get("headers"); h != nil && !goja.IsUndefined(h) {
				hObj := h.ToObject(vm)
				for _, key := range hObj.Keys() {
					headers[key] = hObj.Get(key).String()
				}
			}
			if b := optsObj.Get("body"); b != nil && !goja.IsUndefined(b) {
				body = strings.NewReader(b.String())
			}
		}

		parsedURL, err := url.Parse(rawURL)
		if err != nil {
			panic(vm.ToValue(fmt.Sprintf("kino.http.fetch: invalid URL: %v", err)))
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			panic(vm.ToValue("kino.http.fetch: only http and https schemes are supported"))
		}
		if p.manifest.HTTPAccess == nil {
			panic(vm.ToValue("kino.http.fetch: provider does not declare httpAccess"))
		}
		if err := validateDomain(parsedURL.Host, allowedDomains); err != nil {
			panic(vm.ToValue(fmt.Sprintf("kino.http.fetch: %v", err)))
		}

		req, err := http.NewRequestWithContext(p.ctx, method, rawURL, body)
		if err != nil {
			panic(vm.ToValue(fmt.Sprintf("kino.http.fetch: failed to create request: %v", err)))
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			panic(vm.ToValue(fmt.Sprintf("kino.http.fetch: request failed: %v", err)))
		}
		defer resp.Body.Close()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			panic(vm.ToValue(fmt.Sprintf("kino.http.fetch: failed to read response body: %v", err)))
		}

		respHeaders := vm.NewObject()
		for key := range resp.Header {
			respHeaders.Set(strings.ToLower(key), resp.Header.Get(key)) //nolint:errcheck
		}

		responseObj := vm.NewObject()
		responseObj.Set("ok", resp.StatusCode >= 200 && resp.StatusCode <= 299) //nolint:errcheck
		responseObj.Set("status", resp.StatusCode)                              //nolint:errcheck
		responseObj.Set("headers", respHeaders)                                 //nolint:errcheck
		responseObj.Set("text", func(_ goja.FunctionCall) goja.Value {          //nolint:errcheck
			return vm.ToValue(string(bodyBytes))
		})
		responseObj.Set("json", func(_ goja.FunctionCall) goja.Value { //nolint:errcheck
			var result interface{}
			if err := json.Unmarshal(bodyBytes, &result); err != nil {
				panic(vm.ToValue(fmt.Sprintf("response.json(): failed to parse JSON: %v", err)))
			}
			return vm.ToValue(result)
		})
		return responseObj
	})

	return nil
}

// validateDomain checks whether host (with an optional port) is allowed by domains.
// "example.com" allows only itself. "*.example.com" also allows every subdomain.
// Non-standard ports must be listed explicitly. Comparison is case-insensitive.
func validateDomain(host string, domains []string) error {
	host = strings.ToLower(host)
	hostname, port := splitHostPort(host)

	for _, allowed := range domains {
		allowedHostname, allowedPort := splitHostPort(strings.ToLower(allowed))
		if !matchDomainPattern(hostname, allowedHostname) {
			continue
		}
		if allowedPort != "" {
			if port == allowedPort {
				return nil
			}
			continue
		}
		if port == "" || port == "80" || port == "443" {
			return nil
		}
	}

	return errors.Wrapf(errDomainNotAllowed, "domain %q", host)
}

func matchDomainPattern(hostname, pattern string) bool {
	if base, ok := strings.CutPrefix(pattern, "*."); ok {
		return hostname == base || strings.HasSuffix(hostname, "."+base)
	}
	return hostname == pattern
}

// splitHostPort is net.SplitHostPort without the error for a missing port.
func splitHostPort(host string) (hostname, port string) {
	if strings.HasPrefix(host, "[") {
		closeBracket := strings.LastIndex(host, "]")
		if closeBracket == -1 {
			return host, ""
		}
		if closeBracket+1 < len(host) && host[closeBracket+1] == ':' {
			return host[:closeBracket+1], host[closeBracket+2:]
		}
		return host[:closeBracket+1], ""
	}
	lastColon := strings.LastIndex(host, ":")
	if lastColon == -1 {
		return host, ""
	}
	return host[:lastColon], host[lastColon+1:]
}
