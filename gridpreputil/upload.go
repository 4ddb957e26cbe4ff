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
	"os"
	"path/filepath"

	"github.com/google/go-cloud/blob"
	"github.com/sirupsen/logrus"
)

// uploader stages output files that are destined for blob storage in a
// local temporary directory and uploads them once they have been written.
type uploader struct {
	// files is a set of file path pairs. The first of each pair
	// is a local file path and the second is a blob storage
	// path where it should be uploaded to.
	files [][2]string
	err   error
	dir   string
	log   logrus.FieldLogger
}

// maybeUpload checks whether the given output file path refers to
// a blob storage location. If it does, then a temporary file location
// is returned. The file will then be uploaded to blob storage when
// the uploadOutput method is run.
func (u *uploader) maybeUpload(path string) string {
	if u.err != nil {
		return ""
	}
	if !IsBlob(path) {
		return path
	}
	if u.dir == "" {
		u.dir, u.err = ioutil.TempDir("", "gridprep")
		if u.err != nil {
			return ""
		}
	}
	files := expandShp(path)
	for _, f := range files {
		u.files = append(u.files, [2]string{
			filepath.Join(u.dir, filepath.Base(f)),
			f,
		})
	}
	return filepath.Join(u.dir, filepath.Base(files[0]))
}

// uploadOutput uploads all of the staged files. Support files that were
// never written, such as a missing .prj file, are skipped.
func (u *uploader) uploadOutput(ctx context.Context) error {
	if u.err != nil {
		return u.err
	}
	for _, files := range u.files {
		if _, err := os.Stat(files[0]); os.IsNotExist(err) && optionalFile(files[0]) {
			continue
		}
		if err := u.upload(ctx, files[0], files[1]); err != nil {
			return err
		}
	}
	if u.dir != "" {
		return os.RemoveAll(u.dir)
	}
	return nil
}

func (u *uploader) upload(ctx context.Context, local, remote string) error {
	r, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("gridpreputil: opening file '%s' for upload: %v", local, err)
	}
	defer r.Close()
	bucketName, key, err := splitBlob(remote)
	if err != nil {
		return fmt.Errorf("gridpreputil: parsing url '%s' for upload: %v", remote, err)
	}
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("gridpreputil: opening bucket to upload file '%s': %v", remote, err)
	}
	if u.log != nil {
		u.log.WithFields(logrus.Fields{
			"file":   local,
			"bucket": bucketName,
			"key":    key,
		}).Info("gridprep uploading file")
	}
	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("gridpreputil: opening writer to upload file '%s': %v", remote, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("gridpreputil: uploading file '%s' to '%s': %v", local, remote, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gridpreputil: uploading file '%s' to '%s': %v", local, remote, err)
	}
	return nil
}
