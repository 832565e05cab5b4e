package provider

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ensure interface is implemented
var _ Provider = (*S3Provider)(nil)

type s3FileInfo struct {
	name    string
	size    int64
	isDir   bool
	modTime time.Time
}

func (f *s3FileInfo) Name() string       { return f.name }
func (f *s3FileInfo) Size() int64        { return f.size }
func (f *s3FileInfo) IsDir() bool        { return f.isDir }
func (f *s3FileInfo) ModTime() time.Time { return f.modTime }

// S3Provider implements Provider over an S3 bucket. All paths are
// interpreted relative to the configured key prefix.
type S3Provider struct {
	client   *s3.Client
	bucket   string
	prefix   string
	uploader *manager.Uploader
}

// NewS3Provider creates an S3Provider for the given bucket using the
// ambient AWS configuration.
func NewS3Provider(ctx context.Context, bucket string, prefix string) (*S3Provider, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)

	return &S3Provider{
		client:   client,
		bucket:   bucket,
		prefix:   prefix,
		uploader: manager.NewUploader(client),
	}, nil
}

// NewS3ProviderFromClient wires an existing client, used by the worker
// to share one connection pool across job downloads and publishes.
func NewS3ProviderFromClient(client *s3.Client, bucket string, prefix string) *S3Provider {
	return &S3Provider{
		client:   client,
		bucket:   bucket,
		prefix:   prefix,
		uploader: manager.NewUploader(client),
	}
}

// buildKey constructs the full S3 key under the provider's prefix.
// Relative path separators are always forward slashes in keys.
func (p *S3Provider) buildKey(subPath string) string {
	subPath = strings.TrimPrefix(strings.ReplaceAll(subPath, "\\", "/"), "/")
	if p.prefix == "" {
		return subPath
	}
	return strings.TrimPrefix(path.Join(p.prefix, subPath), "/")
}

// Stat returns the FileInfo for the given path. A key with no exact
// object match but at least one object under it is reported as a
// directory.
func (p *S3Provider) Stat(ctx context.Context, pth string) (FileInfo, error) {
	key := p.buildKey(pth)

	headOut, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		var modTime time.Time
		if headOut.LastModified != nil {
			modTime = *headOut.LastModified
		}
		var size int64
		if headOut.ContentLength != nil {
			size = *headOut.ContentLength
		}
		return &s3FileInfo{
			name:    path.Base(key),
			size:    size,
			isDir:   strings.HasSuffix(key, "/"),
			modTime: modTime,
		}, nil
	}

	dirPrefix := key + "/"
	if key == "" {
		dirPrefix = ""
	}

	listOut, err := p.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(p.bucket),
		Prefix:  aws.String(dirPrefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("stat failed for %q: %w", pth, err)
	}

	if len(listOut.Contents) > 0 || len(listOut.CommonPrefixes) > 0 {
		return &s3FileInfo{
			name:  path.Base(key),
			isDir: true,
		}, nil
	}

	return nil, fmt.Errorf("file not found: %s", pth)
}

// List returns the immediate children of the given prefix, following
// continuation tokens until the listing is exhausted. Zero-byte keys
// ending in "/" are directory placeholders and are omitted.
func (p *S3Provider) List(ctx context.Context, pth string) ([]FileInfo, error) {
	dirPrefix := p.buildKey(pth)
	if dirPrefix != "" && !strings.HasSuffix(dirPrefix, "/") {
		dirPrefix += "/"
	}

	var infos []FileInfo
	var continuationToken *string

	for {
		out, err := p.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(p.bucket),
			Prefix:            aws.String(dirPrefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list %q: %w", pth, err)
		}

		for _, cp := range out.CommonPrefixes {
			name := strings.TrimPrefix(*cp.Prefix, dirPrefix)
			infos = append(infos, &s3FileInfo{
				name:  strings.TrimSuffix(name, "/"),
				isDir: true,
			})
		}

		for _, obj := range out.Contents {
			name := strings.TrimPrefix(*obj.Key, dirPrefix)
			if name == "" || strings.HasSuffix(name, "/") {
				// The prefix itself, or a placeholder key.
				continue
			}

			var modTime time.Time
			if obj.LastModified != nil {
				modTime = *obj.LastModified
			}
			var size int64
			if obj.Size != nil {
				size = *obj.Size
			}

			infos = append(infos, &s3FileInfo{
				name:    name,
				size:    size,
				modTime: modTime,
			})
		}

		if out.IsTruncated != nil && *out.IsTruncated {
			continuationToken = out.NextContinuationToken
		} else {
			break
		}
	}

	return infos, nil
}

// OpenRead opens an object for streaming reads.
func (p *S3Provider) OpenRead(ctx context.Context, pth string) (io.ReadCloser, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.buildKey(pth)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open read %q: %w", pth, err)
	}
	return out.Body, nil
}

// OpenWrite streams an object upload through a pipe so callers can use
// the ordinary io.Writer copy loop; the actual multipart upload runs in
// a goroutine and its result is surfaced on Close.
func (p *S3Provider) OpenWrite(ctx context.Context, pth string, metadata FileInfo) (io.WriteCloser, error) {
	key := p.buildKey(pth)

	pr, pw := io.Pipe()
	errChan := make(chan error, 1)

	go func() {
		_, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(key),
			Body:   pr,
		})
		pr.CloseWithError(err)
		errChan <- err
	}()

	return &asyncS3Writer{pw: pw, errChan: errChan}, nil
}

type asyncS3Writer struct {
	pw      *io.PipeWriter
	errChan <-chan error
}

func (w *asyncS3Writer) Write(p []byte) (n int, err error) {
	return w.pw.Write(p)
}

func (w *asyncS3Writer) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	if err := <-w.errChan; err != nil {
		return fmt.Errorf("s3 upload failed: %w", err)
	}
	return nil
}
