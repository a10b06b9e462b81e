// Package notify hands completed objects on to downstream processing.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	// Packages
	aws "github.com/aws/aws-sdk-go-v2/aws"
	sqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	chunkup "github.com/mutablelogic/go-chunkup"
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// SendMessageAPI is the part of the SQS client used by the notifier.
type SendMessageAPI interface {
	SendMessage(context.Context, *sqs.SendMessageInput, ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQS sends a message for each completed object to a queue.
type SQS struct {
	client   SendMessageAPI
	queueUrl string
	fifo     bool
}

var _ chunkup.Notifier = (*SQS)(nil)

// Event is the message body sent for each completed object.
type Event struct {
	Type   string        `json:"type"`
	Object schema.Object `json:"object"`
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	EventObjectCompleted = "object.completed"
	fifoSuffix           = ".fifo"
)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewSQS returns a notifier which sends to the queue. A FIFO queue, with a
// URL ending in ".fifo", gets messages grouped and deduplicated by object id.
func NewSQS(client SendMessageAPI, queueUrl string) (*SQS, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: missing SQS client", schema.ErrInvalidInput)
	} else if queueUrl == "" {
		return nil, fmt.Errorf("%w: missing queue URL", schema.ErrInvalidInput)
	}
	return &SQS{
		client:   client,
		queueUrl: queueUrl,
		fifo:     strings.HasSuffix(queueUrl, fifoSuffix),
	}, nil
}

// NewSQSFromConfig creates the SQS client from AWS configuration. A
// non-empty endpoint replaces the default service endpoint.
func NewSQSFromConfig(cfg aws.Config, queueUrl, endpoint string) (*SQS, error) {
	client := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewSQS(client, queueUrl)
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Notify sends an object.completed event for the object.
func (n *SQS) Notify(ctx context.Context, obj schema.Object) error {
	body, err := json.Marshal(Event{Type: EventObjectCompleted, Object: obj})
	if err != nil {
		return err
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(n.queueUrl),
		MessageBody: aws.String(string(body)),
	}
	if n.fifo {
		input.MessageGroupId = aws.String(obj.Id)
		input.MessageDeduplicationId = aws.String(obj.Id)
	}
	if _, err := n.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("notify %s: %w", obj.Id, err)
	}

	// Return success
	return nil
}
