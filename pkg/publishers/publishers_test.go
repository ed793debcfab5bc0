package publishers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: queue
    type: sqs
    sqs:
      uri: https://sqs.us-east-1.amazonaws.com/1/relay
      region: us-east-1
      endpoint: http://localhost:4566
  - id: topic
    type: SNS
    sns:
      topic_arn: arn:aws:sns:us-east-1:1:relay
      region: us-east-1
  - id: gcp
    type: pubsub
    pubsub:
      project_id: demo
      topic: relay
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 3 || enabled[0].ID != "queue" {
		t.Fatalf("expected three enabled publishers, got %#v", enabled)
	}
	q, _ := reg.ByID("queue")
	if q.SQS.Region != "us-east-1" || q.SQS.Endpoint != "http://localhost:4566" {
		t.Fatalf("inline aws settings not decoded: %#v", q.SQS)
	}
	if topic, _ := reg.ByID("topic"); topic.Type != TypeSNS {
		t.Fatalf("type should be normalized, got %q", topic.Type)
	}
}

func TestValidatePublisherConfig(t *testing.T) {
	cases := map[string]PublisherConfig{
		"missing http": {ID: "h1", Type: TypeHTTP},
		"missing sns":  {ID: "s1", Type: TypeSNS, SNS: &SNSPublisherConfig{AWSConfig: AWSConfig{Region: "us-east-1"}}},
		"half keys": {ID: "q1", Type: TypeSQS, SQS: &SQSPublisherConfig{
			QueueURL:  "https://q",
			AWSConfig: AWSConfig{Region: "us-east-1", AccessKeyID: "AKIA"},
		}},
		"pubsub topic": {ID: "p1", Type: TypePubSub, PubSub: &PubSubPublisherConfig{ProjectID: "x"}},
		"unknown type": {ID: "k1", Type: "kafka"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			if err := validatePublisherConfig(cfg); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
