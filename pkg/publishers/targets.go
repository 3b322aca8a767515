package publishers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-feed-harvester/pkg/cfgfile"
)

// Target types.
const (
	TypeQueue = "queue"
	TypeHTTP  = "http"
)

// Queue providers.
const (
	QueueProviderAWSSQS = "aws-sqs"
	QueueProviderAWSSNS = "aws-sns"
	QueueProviderGCP    = "gcp"
)

const (
	defaultHTTPMethod  = http.MethodPost
	defaultHTTPTimeout = 5 * time.Second
)

// Target is one downstream destination for ingest events.
type Target struct {
	ID      string       `json:"id" yaml:"id"`
	Type    string       `json:"type" yaml:"type"`
	Enabled *bool        `json:"enabled" yaml:"enabled"`
	Route   Route        `json:"route" yaml:"route"`
	Queue   *QueueTarget `json:"queue" yaml:"queue"`
	HTTP    *HTTPTarget  `json:"http" yaml:"http"`
}

// QueueTarget selects a cloud queue; only the block matching Provider is read.
type QueueTarget struct {
	Provider string     `json:"provider" yaml:"provider"`
	SQS      *SQSTarget `json:"sqs" yaml:"sqs"`
	SNS      *SNSTarget `json:"sns" yaml:"sns"`
	GCP      *GCPTarget `json:"gcp" yaml:"gcp"`
}

// AWSCredentials are optional static keys. Without them the default credential chain applies.
type AWSCredentials struct {
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

type SQSTarget struct {
	QueueURL       string `json:"queue_url" yaml:"queue_url"`
	AWSCredentials `json:",inline" yaml:",inline"`
}

type SNSTarget struct {
	TopicARN       string `json:"topic_arn" yaml:"topic_arn"`
	AWSCredentials `json:",inline" yaml:",inline"`
}

type GCPTarget struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// HTTPTarget posts each event as JSON. Timeout is a Go duration string ("5s").
type HTTPTarget struct {
	URL     string            `json:"url" yaml:"url"`
	Method  string            `json:"method" yaml:"method"`
	Headers map[string]string `json:"headers" yaml:"headers"`
	Timeout string            `json:"timeout" yaml:"timeout"`
}

// Targets is the ordered list declared in a publishers file.
type Targets []Target

type targetsFile struct {
	Publishers Targets `json:"publishers" yaml:"publishers"`
}

// LoadTargets reads, normalizes and validates a publishers file.
func LoadTargets(path string) (Targets, error) {
	data, ext, err := cfgfile.Read(path, "publishers")
	if err != nil {
		return nil, err
	}
	return ParseTargets(data, ext)
}

// ParseTargets decodes publishers file content. Target ids must be unique.
func ParseTargets(data []byte, ext string) (Targets, error) {
	var file targetsFile
	if err := cfgfile.Decode(data, ext, "publishers", &file); err != nil {
		return nil, err
	}
	if len(file.Publishers) == 0 {
		return nil, fmt.Errorf("publishers %w", cfgfile.ErrEmpty)
	}

	seen := make(map[string]struct{}, len(file.Publishers))
	out := make(Targets, 0, len(file.Publishers))
	for i, t := range file.Publishers {
		t.normalize()
		if err := t.validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// Enabled drops targets switched off with enabled: false.
func (ts Targets) Enabled() Targets {
	var out Targets
	for _, t := range ts {
		if t.EnabledValue() {
			out = append(out, t)
		}
	}
	return out
}

// EnabledValue defaults to true.
func (t Target) EnabledValue() bool {
	return t.Enabled == nil || *t.Enabled
}

func (t *Target) normalize() {
	t.ID = strings.TrimSpace(t.ID)
	t.Type = strings.ToLower(strings.TrimSpace(t.Type))
	t.Route.normalize()
	if t.Queue != nil {
		t.Queue.normalize()
	}
	if t.HTTP != nil {
		t.HTTP.normalize()
	}
}

func (t Target) validate() error {
	if t.ID == "" {
		return errors.New("id is required")
	}
	if err := t.Route.validate(); err != nil {
		return fmt.Errorf("publisher %q: %w", t.ID, err)
	}

	var err error
	switch t.Type {
	case TypeQueue:
		if t.Queue == nil {
			return fmt.Errorf("publisher %q: queue block is required", t.ID)
		}
		err = t.Queue.validate()
	case TypeHTTP:
		if t.HTTP == nil {
			return fmt.Errorf("publisher %q: http block is required", t.ID)
		}
		err = t.HTTP.validate()
	case "":
		err = errors.New("type is required")
	default:
		err = fmt.Errorf("type %q not supported", t.Type)
	}
	if err != nil {
		return fmt.Errorf("publisher %q: %w", t.ID, err)
	}
	return nil
}

func (q *QueueTarget) normalize() {
	q.Provider = strings.ToLower(strings.TrimSpace(q.Provider))
	if q.SQS != nil {
		q.SQS.QueueURL = strings.TrimSpace(q.SQS.QueueURL)
		q.SQS.AWSCredentials.normalize()
	}
	if q.SNS != nil {
		q.SNS.TopicARN = strings.TrimSpace(q.SNS.TopicARN)
		q.SNS.AWSCredentials.normalize()
	}
	if q.GCP != nil {
		q.GCP.ProjectID = strings.TrimSpace(q.GCP.ProjectID)
		q.GCP.Topic = strings.TrimSpace(q.GCP.Topic)
		q.GCP.CredentialsFile = strings.TrimSpace(q.GCP.CredentialsFile)
	}
}

func (q QueueTarget) validate() error {
	switch q.Provider {
	case QueueProviderAWSSQS:
		if q.SQS == nil || q.SQS.QueueURL == "" {
			return errors.New("sqs.queue_url is required")
		}
		return q.SQS.AWSCredentials.validate("sqs")
	case QueueProviderAWSSNS:
		if q.SNS == nil || q.SNS.TopicARN == "" {
			return errors.New("sns.topic_arn is required")
		}
		return q.SNS.AWSCredentials.validate("sns")
	case QueueProviderGCP:
		if q.GCP == nil || q.GCP.ProjectID == "" || q.GCP.Topic == "" {
			return errors.New("gcp.project_id and gcp.topic are required")
		}
		return nil
	default:
		return fmt.Errorf("queue provider %q not supported", q.Provider)
	}
}

func (c *AWSCredentials) normalize() {
	c.Region = strings.TrimSpace(c.Region)
	c.AccessKeyID = strings.TrimSpace(c.AccessKeyID)
	c.SecretAccessKey = strings.TrimSpace(c.SecretAccessKey)
}

// validate allows static keys only as a pair.
func (c AWSCredentials) validate(prefix string) error {
	if c.Region == "" {
		return fmt.Errorf("%s.region is required", prefix)
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("%s.access_key_id and %s.secret_access_key must be set together", prefix, prefix)
	}
	return nil
}

func (h *HTTPTarget) normalize() {
	h.URL = strings.TrimSpace(h.URL)
	h.Method = strings.ToUpper(strings.TrimSpace(h.Method))
	if h.Method == "" {
		h.Method = defaultHTTPMethod
	}
	h.Headers = cfgfile.Headers(h.Headers)
	h.Timeout = strings.TrimSpace(h.Timeout)
}

func (h HTTPTarget) validate() error {
	if !strings.HasPrefix(h.URL, "http://") && !strings.HasPrefix(h.URL, "https://") {
		return fmt.Errorf("http.url must be an http(s) url, got %q", h.URL)
	}
	switch h.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return fmt.Errorf("http.method %q cannot carry a body", h.Method)
	}

	_, err := h.requestTimeout()
	return err
}

func (h HTTPTarget) requestTimeout() (time.Duration, error) {
	if h.Timeout == "" {
		return defaultHTTPTimeout, nil
	}
	d, err := time.ParseDuration(h.Timeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("http.timeout %q must be a positive duration", h.Timeout)
	}
	return d, nil
}
