package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/fioncat/vbrowse/pathcodec"
	"github.com/fioncat/vbrowse/types"
)

// S3 serves a bucket, optionally below a key prefix. Common prefixes of a
// delimited listing are shown as folders.
type S3 struct {
	client *s3.Client

	bucket string
	prefix string
}

func NewS3(ctx context.Context, bucket, prefix string, cfg *types.S3Config) (*S3, error) {
	var opts []func(*config.LoadOptions) error
	if cfg != nil {
		if cfg.Region != "" {
			opts = append(opts, config.WithRegion(cfg.Region))
		}
		if cfg.AccessKey != "" {
			opts = append(opts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
			))
		}
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg != nil && cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3WithClient(client, bucket, prefix), nil
}

func newS3WithClient(client *s3.Client, bucket, prefix string) *S3 {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (p *S3) key(logical string) string {
	return p.prefix + strings.TrimPrefix(pathcodec.Normalize(logical), "/")
}

func (p *S3) List(ctx context.Context, dir string) ([]*types.Entry, error) {
	dir = pathcodec.Normalize(dir)
	keyPrefix := p.key(dir)
	if keyPrefix != "" && !strings.HasSuffix(keyPrefix, "/") {
		keyPrefix += "/"
	}

	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(p.bucket),
		Prefix:    aws.String(keyPrefix),
		Delimiter: aws.String("/"),
	})

	var ents []*types.Entry
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list %q: %w", dir, convertS3Error(err))
		}
		for _, prefix := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(prefix.Prefix), keyPrefix), "/")
			if name == "" {
				continue
			}
			ents = append(ents, &types.Entry{
				Name: name,
				Kind: types.KindFolder,
				Path: joinLogical(dir, name),
			})
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), keyPrefix)
			// Folder placeholder objects
			if name == "" || strings.HasSuffix(name, "/") {
				continue
			}
			ent := &types.Entry{
				Name: name,
				Kind: types.KindFile,
				Size: aws.ToInt64(obj.Size),
				Path: joinLogical(dir, name),
			}
			if obj.LastModified != nil {
				ent.ModifiedAt = obj.LastModified.Local().Format(modifiedLayout)
			}
			ents = append(ents, ent)
		}
	}

	// Prefixes do not exist on their own, an empty non-root listing means
	// nothing is stored below it.
	if len(ents) == 0 && dir != "/" {
		return nil, fmt.Errorf("s3 list %q: %w", dir, types.ErrNotFound)
	}
	sortEntries(ents)

	return ents, nil
}

func (p *S3) ReadFile(ctx context.Context, file string) ([]byte, error) {
	file = pathcodec.Normalize(file)
	input := &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key(file)),
	}
	if n := types.ReadLimit(ctx); n > 0 {
		input.Range = aws.String(fmt.Sprintf("bytes=0-%d", n-1))
	}
	out, err := p.client.GetObject(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("s3 get object %q: %w", file, convertS3Error(err))
	}
	defer out.Body.Close()

	data, err := readAll(ctx, out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3 object %q: %w", file, err)
	}
	return data, nil
}

func joinLogical(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

func convertS3Error(err error) error {
	var noKey *s3types.NoSuchKey
	var noBucket *s3types.NoSuchBucket
	var notFound *s3types.NotFound
	switch {
	case errors.As(err, &noKey), errors.As(err, &noBucket), errors.As(err, &notFound):
		return fmt.Errorf("%v: %w", err, types.ErrNotFound)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	}
	return fmt.Errorf("%v: %w", err, types.ErrUnavailable)
}
