// Package s3stage stages pipeline inputs down from and outputs up to S3.
// The raw I-94 extracts and the published star-schema tables both live in
// S3 buckets in the production setup; local paths are only a working
// copy.
package s3stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// Option is a functional option type for Stage.
type Option func(st *Stage)

// OptRegion sets the AWS region for the stage.
func OptRegion(region string) Option {
	return func(st *Stage) {
		st.region = region
	}
}

// Stage copies objects between S3 and the local working directory.
type Stage struct {
	region string

	sess       *session.Session
	s3         *s3.S3
	downloader *s3manager.Downloader
	uploader   *s3manager.Uploader
}

// New returns a new Stage with the options applied.
func New(opts ...Option) (*Stage, error) {
	st := &Stage{}
	for _, opt := range opts {
		opt(st)
	}

	sess, err := session.NewSession(&aws.Config{Region: aws.String(st.region)})
	if err != nil {
		return nil, fmt.Errorf("creating AWS session: %w", err)
	}
	st.sess = sess
	st.s3 = s3.New(sess)
	st.downloader = s3manager.NewDownloader(sess)
	st.uploader = s3manager.NewUploader(sess)
	return st, nil
}

// DownloadPrefix downloads every object under bucket/prefix into
// localDir, preserving the key structure below the prefix. It returns the
// number of objects downloaded.
func (st *Stage) DownloadPrefix(ctx context.Context, bucket, prefix, localDir string) (int, error) {
	var keys []string
	err := st.s3.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue // directory placeholder objects
			}
			keys = append(keys, key)
		}
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("listing s3://%s/%s: %w", bucket, prefix, err)
	}

	for _, key := range keys {
		relative := strings.TrimPrefix(strings.TrimPrefix(key, prefix), "/")
		localPath := filepath.Join(localDir, filepath.FromSlash(relative))
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return 0, fmt.Errorf("creating %s: %w", filepath.Dir(localPath), err)
		}

		f, err := os.Create(localPath)
		if err != nil {
			return 0, fmt.Errorf("creating %s: %w", localPath, err)
		}
		_, err = st.downloader.DownloadWithContext(ctx, f, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		closeErr := f.Close()
		if err != nil {
			return 0, fmt.Errorf("downloading s3://%s/%s: %w", bucket, key, err)
		}
		if closeErr != nil {
			return 0, fmt.Errorf("closing %s: %w", localPath, closeErr)
		}
	}

	return len(keys), nil
}

// UploadDir uploads every file under localDir to bucket/prefix,
// preserving the directory structure. It returns the number of objects
// uploaded.
func (st *Stage) UploadDir(ctx context.Context, localDir, bucket, prefix string) (int, error) {
	var paths []string
	err := filepath.WalkDir(localDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scanning %s: %w", localDir, err)
	}

	for _, path := range paths {
		relative, err := filepath.Rel(localDir, path)
		if err != nil {
			return 0, fmt.Errorf("resolving %s: %w", path, err)
		}
		key := filepath.ToSlash(relative)
		if prefix != "" {
			key = strings.TrimSuffix(prefix, "/") + "/" + key
		}

		f, err := os.Open(path)
		if err != nil {
			return 0, fmt.Errorf("opening %s: %w", path, err)
		}
		_, err = st.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   f,
		})
		closeErr := f.Close()
		if err != nil {
			return 0, fmt.Errorf("uploading s3://%s/%s: %w", bucket, key, err)
		}
		if closeErr != nil {
			return 0, fmt.Errorf("closing %s: %w", path, closeErr)
		}
	}

	return len(paths), nil
}
