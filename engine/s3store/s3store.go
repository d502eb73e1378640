// Package s3store implements an engine.Engine backed by an S3-compatible
// object store.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/cardvault/cardvault/cerr"
	"github.com/cardvault/cardvault/engine"
	"github.com/cardvault/cardvault/engine/page"
	"github.com/cardvault/cardvault/gtime"
)

const gtimeMetaKey = "g-time"

// Store is an object-storage-backed engine.Engine. Each card is one
// object, keyed by its hash, with its g_time stamp carried as object
// metadata.
type Store struct {
	client *s3.Client
	bucket string
}

// Config configures a new Store. Endpoint and UsePathStyle exist to
// support MinIO and other S3-compatible services.
type Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// New builds a Store from explicit static credentials.
func New(ctx context.Context, cfg Config) (*Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Endpoint != "" {
		loadOpts = append(loadOpts, awsconfig.WithBaseEndpoint(cfg.Endpoint))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(ctx context.Context) (aws.Credentials, error) {
				return aws.Credentials{AccessKeyID: cfg.AccessKey, SecretAccessKey: cfg.SecretKey}, nil
			})))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3store: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *Store) Add(ctx context.Context, row engine.Row) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(row.Hash)})
	if err == nil {
		return engine.ErrHashConflict
	}
	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("s3store: head before add: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(row.Hash),
		Body:     bytes.NewReader(row.Content),
		Metadata: map[string]string{gtimeMetaKey: string(row.GTime)},
	})
	if err != nil {
		return fmt.Errorf("s3store: put: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, hash string) (engine.Row, bool, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(hash)})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return engine.Row{}, false, nil
		}
		return engine.Row{}, false, fmt.Errorf("s3store: get: %w", err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return engine.Row{}, false, fmt.Errorf("s3store: read body: %w", err)
	}

	g := out.Metadata[gtimeMetaKey]
	return engine.Row{Hash: hash, GTime: gtime.GTime(g), Content: content}, true, nil
}

func (s *Store) Delete(ctx context.Context, hash string) (bool, error) {
	exists, _, err := s.headAndDecide(ctx, hash)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(hash)}); err != nil {
		return false, fmt.Errorf("s3store: delete: %w", err)
	}
	return true, nil
}

func (s *Store) headAndDecide(ctx context.Context, hash string) (bool, int64, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(hash)})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("s3store: head: %w", err)
	}
	return true, aws.ToInt64(head.ContentLength), nil
}

func (s *Store) Update(ctx context.Context, hash string, newContent []byte) error {
	exists, _, err := s.headAndDecide(ctx, hash)
	if err != nil {
		return err
	}
	if !exists {
		return engine.ErrNotFound
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(hash)})
	if err != nil {
		return fmt.Errorf("s3store: head before update: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(hash),
		Body:     bytes.NewReader(newContent),
		Metadata: head.Metadata,
	})
	if err != nil {
		return fmt.Errorf("s3store: update: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket), ContinuationToken: token})
		if err != nil {
			return 0, fmt.Errorf("s3store: list: %w", err)
		}
		n += int64(len(out.Contents))
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	return n, nil
}

func (s *Store) Clear(ctx context.Context) error {
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket), ContinuationToken: token})
		if err != nil {
			return fmt.Errorf("s3store: list for clear: %w", err)
		}
		for _, obj := range out.Contents {
			if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: obj.Key}); err != nil {
				return fmt.Errorf("s3store: delete during clear: %w", err)
			}
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	return nil
}

// listAll walks every page of ListObjectsV2 and returns objects sorted
// by LastModified, the closest proxy object storage offers for
// insertion order since S3 has no native ordering concept.
func (s *Store) listAll(ctx context.Context) ([]types.Object, error) {
	var all []types.Object
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket), ContinuationToken: token})
		if err != nil {
			return nil, fmt.Errorf("s3store: list: %w", err)
		}
		all = append(all, out.Contents...)
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	sort.SliceStable(all, func(i, j int) bool {
		return aws.ToTime(all[i].LastModified).Before(aws.ToTime(all[j].LastModified))
	})
	return all, nil
}

func (s *Store) GetPage(ctx context.Context, pageNumber, pageSize int) (page.Page[engine.Row], error) {
	return s.queryPage(ctx, "", pageNumber, pageSize)
}

func (s *Store) SearchByContent(ctx context.Context, q string, pageNumber, pageSize int) (page.Page[engine.Row], error) {
	return s.queryPage(ctx, q, pageNumber, pageSize)
}

func (s *Store) queryPage(ctx context.Context, contains string, pageNumber, pageSize int) (page.Page[engine.Row], error) {
	objects, err := s.listAll(ctx)
	if err != nil {
		return page.Page[engine.Row]{}, err
	}

	var matched []engine.Row
	for _, obj := range objects {
		row, ok, err := s.Get(ctx, aws.ToString(obj.Key))
		if err != nil {
			return page.Page[engine.Row]{}, err
		}
		if !ok {
			continue
		}
		if contains != "" && !strings.Contains(string(row.Content), contains) {
			continue
		}
		matched = append(matched, row)
	}

	total := int64(len(matched))
	var totalPages int64
	if total > 0 && pageSize > 0 {
		totalPages = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	if total > 0 && int64(pageNumber) > totalPages {
		return page.Page[engine.Row]{}, cerr.New(cerr.PageOutOfRange, "page_number exceeds total_pages")
	}

	start := (pageNumber - 1) * pageSize
	end := start + pageSize
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	return page.New(matched[start:end], total, pageNumber, pageSize), nil
}
