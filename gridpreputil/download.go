/*
Copyright © 2018 the gridprep authors.
This file is part of gridprep.

gridprep is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gridprep is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gridprep.  If not, see <http://www.gnu.org/licenses/>.
*/

package gridpreputil

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cenkalti/backoff"
	"github.com/google/go-cloud/blob"
	"github.com/google/go-cloud/blob/fileblob"
	"github.com/google/go-cloud/blob/gcsblob"
	"github.com/google/go-cloud/blob/s3blob"
	"github.com/google/go-cloud/gcp"
	"github.com/sirupsen/logrus"
)

// downloadRetries is the maximum number of times a failed HTTP
// download is retried.
var downloadRetries uint64 = 5

// maybeDownload checks if the input is an existing local file.
// If not, and the path is an HTTP(S) URL or a blob storage location,
// it downloads the file and returns the path to the downloaded copy.
// For shapefiles, all associated files are downloaded and the
// path to the file with the ".shp" extension is returned.
// Other paths are returned unchanged.
func maybeDownload(ctx context.Context, path string, log logrus.FieldLogger) (string, error) {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return path, nil
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return downloadHTTP(ctx, path, log)
	}
	if IsBlob(path) {
		return downloadBlob(ctx, path, log)
	}
	return path, nil
}

// downloadHTTP downloads a file from the specified URL and returns
// the path to the downloaded file.
func downloadHTTP(ctx context.Context, path string, log logrus.FieldLogger) (string, error) {
	dir, err := ioutil.TempDir("", "gridprep")
	if err != nil {
		return "", fmt.Errorf("gridpreputil: creating temporary download directory: %v", err)
	}
	fnames := expandShp(path)
	for _, fname := range fnames {
		local := filepath.Join(dir, filepath.Base(fname))
		log.WithFields(logrus.Fields{
			"url":  fname,
			"file": local,
		}).Info("gridprep downloading file")
		var permErr error
		err := backoff.RetryNotify(
			func() error {
				retry, err := getHTTP(ctx, fname, local)
				if err != nil && !retry {
					permErr = err
					return nil
				}
				return err
			},
			backoff.WithContext(retryPolicy(), ctx),
			func(err error, d time.Duration) {
				log.WithError(err).Warnf("gridprep download failed: retrying in %v", d)
			},
		)
		if err == nil {
			err = permErr
		}
		if err != nil && optionalFile(fname) {
			log.WithError(err).Debugf("gridprep skipping %s", fname)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("gridpreputil: downloading %s: %v", fname, err)
		}
	}
	return filepath.Join(dir, filepath.Base(fnames[0])), nil
}

// retryPolicy returns the backoff policy for HTTP downloads.
// A downloadRetries value of zero disables retrying.
func retryPolicy() backoff.BackOff {
	if downloadRetries == 0 {
		return &backoff.StopBackOff{}
	}
	return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), downloadRetries)
}

// getHTTP copies the contents of the given URL to a local file.
// retry reports whether a failed request might succeed if it is
// attempted again.
func getHTTP(ctx context.Context, u, local string) (retry bool, err error) {
	req, err := http.NewRequest("GET", u, nil)
	if err != nil {
		return false, err
	}
	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		return true, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode >= 500, fmt.Errorf("server returned status %s", resp.Status)
	}
	w, err := os.Create(local)
	if err != nil {
		return false, err
	}
	if _, err = io.Copy(w, resp.Body); err != nil {
		w.Close()
		return true, err
	}
	return false, w.Close()
}

// IsBlob returns whether the given path represents a blob
// (i.e., if it starts with 'gs://', 's3://', or 'file://').
func IsBlob(path string) bool {
	return strings.HasPrefix(path, "gs://") || strings.HasPrefix(path, "s3://") || strings.HasPrefix(path, "file://")
}

// OpenBucket returns the blob storage bucket specified by bucketName,
// where bucketName must be in the format 'provider://name' where provider
// is the name of the storage provider and name is the name of the bucket.
// The currently accepted storage providers are "file" for the local filesystem
// (e.g., for testing), "gs" for Google Cloud Storage, and "s3" for AWS S3.
// For the "file" provider, name is a directory path, so
// "file:///tmp/data" refers to the directory /tmp/data.
func OpenBucket(ctx context.Context, bucketName string) (*blob.Bucket, error) {
	u, err := url.Parse(bucketName)
	if err != nil {
		return nil, fmt.Errorf("gridpreputil: opening bucket: %v", err)
	}
	switch u.Scheme {
	case "file":
		return fileblob.NewBucket(u.Host + u.Path)
	case "gs":
		return gsBucket(ctx, u.Host)
	case "s3":
		return s3Bucket(ctx, u.Host)
	default:
		return nil, fmt.Errorf("gridpreputil: opening bucket: invalid provider %s", u.Scheme)
	}
}

func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	// See here for information on credentials:
	// https://cloud.google.com/docs/authentication/getting-started
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	c, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, name, c)
}

// s3Bucket opens an s3 storage bucket. It assumes the following
// environment variables are set: AWS_REGION, AWS_ACCESS_KEY_ID, and
// AWS_SECRET_ACCESS_KEY.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-2"
	}
	c := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}
	s, err := session.NewSession(c)
	if err != nil {
		return nil, err
	}
	return s3blob.OpenBucket(ctx, s, name)
}

// splitBlob splits a blob path into its bucket and key.
// For "file" blobs the bucket is the directory holding the file.
func splitBlob(path string) (bucket, key string, err error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", "", err
	}
	if u.Scheme == "file" {
		dir, file := filepath.Split(u.Host + u.Path)
		return "file://" + dir, file, nil
	}
	return u.Scheme + "://" + u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// downloadBlob downloads the specified file from blob storage.
func downloadBlob(ctx context.Context, path string, log logrus.FieldLogger) (string, error) {
	bucketName, key, err := splitBlob(path)
	if err != nil {
		return "", fmt.Errorf("gridpreputil: downloading %s: %v", path, err)
	}
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return "", err
	}
	dir, err := ioutil.TempDir("", "gridprep")
	if err != nil {
		return "", fmt.Errorf("gridpreputil: creating temporary download directory: %v", err)
	}
	keys := expandShp(key)
	for _, k := range keys {
		local := filepath.Join(dir, filepath.Base(k))
		log.WithFields(logrus.Fields{
			"bucket": bucketName,
			"key":    k,
			"file":   local,
		}).Info("gridprep downloading blob")
		if err := copyBlob(ctx, bucket, k, local); err != nil {
			if optionalFile(k) {
				log.WithError(err).Debugf("gridprep skipping %s", k)
				continue
			}
			return "", fmt.Errorf("gridpreputil: downloading %s from %s: %v", k, bucketName, err)
		}
	}
	return filepath.Join(dir, filepath.Base(keys[0])), nil
}

func copyBlob(ctx context.Context, bucket *blob.Bucket, key, local string) error {
	r, err := bucket.NewReader(ctx, key)
	if err != nil {
		return err
	}
	defer r.Close()
	w, err := os.Create(local)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// expandShp returns the given file + associated [.dbf, .shx, .prj]
// files if the given file has the .shp extension, and returns the given
// file otherwise.
func expandShp(filename string) []string {
	o := []string{filename}
	if filepath.Ext(filename) != ".shp" {
		return o
	}
	for _, newExt := range []string{".dbf", ".shx", ".prj"} {
		o = append(o, strings.TrimSuffix(filename, ".shp")+newExt)
	}
	return o
}

// optionalFile reports whether the given shapefile support file may
// be missing.
func optionalFile(filename string) bool {
	return filepath.Ext(filename) == ".prj"
}
