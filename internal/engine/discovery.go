package engine

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/stratusops/spikecorr/internal/models"
)

// ServiceParser extracts service descriptors from a raw process listing. The
// parser is deliberately decoupled from the transport that produced the
// listing so it can be unit-tested against fixed samples.
type ServiceParser interface {
	ParseServices(rawListing string) []models.ServiceDescriptor
}

// GunicornParser discovers gunicorn-served sites by the per-site socket and
// access-log convention in their process invocation arguments, e.g.:
//
//	gunicorn --bind unix:/var/www/shop/shop.sock --access-logfile access.log app:app
type GunicornParser struct {
	serviceRoot string
	pattern     *regexp.Regexp
}

// NewGunicornParser builds a parser rooted at serviceRoot (normally /var/www).
func NewGunicornParser(serviceRoot string) *GunicornParser {
	root := strings.TrimRight(serviceRoot, "/")
	if root == "" {
		root = "/var/www"
	}
	pattern := regexp.MustCompile(
		regexp.QuoteMeta(root) + `/(?P<service>[^/\s]+)/\S*\.sock.*?--access-logfile (?P<log>\S+)`)
	return &GunicornParser{serviceRoot: root, pattern: pattern}
}

// ParseServices returns one descriptor per service in first-occurrence order.
// Gunicorn runs one master and several workers per site, so repeated matches
// for the same service collapse to the first. Non-matching lines are skipped.
func (p *GunicornParser) ParseServices(rawListing string) []models.ServiceDescriptor {
	seen := make(map[string]struct{})
	services := make([]models.ServiceDescriptor, 0)

	for _, line := range strings.Split(rawListing, "\n") {
		match := p.pattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		serviceID := match[p.pattern.SubexpIndex("service")]
		logPath := match[p.pattern.SubexpIndex("log")]
		if _, ok := seen[serviceID]; ok {
			continue
		}
		seen[serviceID] = struct{}{}

		services = append(services, models.ServiceDescriptor{
			ServiceID: serviceID,
			LogPath:   p.resolveLogPath(serviceID, logPath),
		})
	}
	return services
}

// resolveLogPath keeps absolute paths verbatim and anchors relative ones under
// the conventional per-service log directory.
func (p *GunicornParser) resolveLogPath(serviceID, logPath string) string {
	if strings.HasPrefix(logPath, "/") {
		return logPath
	}
	return path.Join(p.serviceRoot, serviceID, "logs", logPath)
}

// ProcessListingCommand is the read-only command whose output feeds the parser.
func ProcessListingCommand(processPattern string) string {
	if processPattern == "" {
		processPattern = "gunicorn"
	}
	return fmt.Sprintf("ps aux | grep %s | grep -v 'grep'", processPattern)
}
