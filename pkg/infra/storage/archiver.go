package storage

import (
	"context"
	"path"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"

	"github.com/m-mizutani/relnotify/pkg/domain/interfaces"
	"github.com/m-mizutani/relnotify/pkg/domain/model"
	"github.com/m-mizutani/relnotify/pkg/infra/mail"
)

// Archiver stores every rendered message in a Cloud Storage bucket as an
// .eml object
type Archiver struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.MailSender = (*Archiver)(nil)

// New creates an Archiver writing to gs://bucket/prefix
func New(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*Archiver, error) {
	if bucket == "" {
		return nil, goerr.New("archive bucket is required")
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	return &Archiver{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Close releases the underlying client
func (x *Archiver) Close() error {
	return x.client.Close()
}

// ObjectName returns the object path of msg, partitioned by creation date
func ObjectName(prefix string, msg *model.EmailMessage) string {
	return path.Join(prefix, msg.CreatedAt.UTC().Format("2006/01/02"), msg.ID+".eml")
}

// Send implements interfaces.MailSender
func (x *Archiver) Send(ctx context.Context, msg *model.EmailMessage) error {
	data, err := mail.BuildMessage(msg)
	if err != nil {
		return err
	}

	name := ObjectName(x.prefix, msg)
	w := x.client.Bucket(x.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "message/rfc822"
	w.Metadata = map[string]string{
		"subject": msg.Subject,
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write archived email",
			goerr.V("bucket", x.bucket),
			goerr.V("object", name),
		)
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize archived email",
			goerr.V("bucket", x.bucket),
			goerr.V("object", name),
		)
	}

	return nil
}
