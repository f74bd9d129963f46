// Package blob stores uploaded files and hands out opaque references to them.
//
// A reference is the id of a model.File row. Content lives in the configured
// bucket when one is available and in the row itself otherwise.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"InternHub-backend/internal/apperror"
	"InternHub-backend/internal/model"
)

// File categories
const (
	CategoryPaymentProof = "payment_proofs"
	CategoryProject      = "projects"
)

// Store persists files and resolves references to download URLs.
type Store struct {
	db            *gorm.DB
	objects       ObjectStorage
	publicBaseURL string
	log           logrus.FieldLogger
}

// Object is an opened file.
type Object struct {
	Reader    io.ReadCloser
	Size      int64
	File      model.File
	FileName  string
	MediaType string
}

// NewStore creates a store. objects may be nil, in which case content is kept in the database.
func NewStore(db *gorm.DB, objects ObjectStorage, publicBaseURL string, log logrus.FieldLogger) *Store {
	return &Store{
		db:            db,
		objects:       objects,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		log:           log,
	}
}

// Store saves content and returns its reference.
func (s *Store) Store(ctx context.Context, content []byte, extension, category string, ownerID *uuid.UUID) (string, error) {
	file := model.File{Extension: extension, Category: category}
	if ownerID != nil {
		owner := ownerID.String()
		file.OwnerID = &owner
	}
	if err := s.persistFileData(ctx, &file, content); err != nil {
		return "", apperror.Internal("failed to store file", err)
	}
	if err := s.db.WithContext(ctx).Create(&file).Error; err != nil {
		return "", apperror.Internal("failed to record file", err)
	}
	s.log.WithFields(logrus.Fields{"file_id": file.ID, "category": category}).Debug("file stored")
	return strconv.FormatUint(uint64(file.ID), 10), nil
}

func (s *Store) persistFileData(ctx context.Context, file *model.File, content []byte) error {
	if s.objects == nil {
		file.Content = content
		file.ObjectName = nil
		return nil
	}

	objectName := fmt.Sprintf("%s/%s%s", file.Category, uuid.NewString(), file.Extension)
	if err := s.objects.UploadFile(ctx, objectName, bytes.NewReader(content)); err != nil {
		return err
	}
	file.ObjectName = &objectName
	file.Content = nil
	return nil
}

// Lookup returns the metadata of ref, or not_found.
func (s *Store) Lookup(ctx context.Context, ref string) (*model.File, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(ref), 10, 64)
	if err != nil || id == 0 {
		return nil, apperror.New(apperror.KindNotFound, "File not found")
	}
	var file model.File
	err = s.db.WithContext(ctx).Omit("content").First(&file, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.New(apperror.KindNotFound, "File not found")
	}
	if err != nil {
		return nil, apperror.Internal("failed to read file", err)
	}
	return &file, nil
}

// OwnedBy reports whether ref points to a file of the given category that
// owner uploaded. An empty category matches any. Files of other users are
// reported exactly like missing ones.
func (s *Store) OwnedBy(ctx context.Context, ref, category string, owner uuid.UUID) (bool, error) {
	file, err := s.Lookup(ctx, ref)
	if apperror.Is(err, apperror.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if category != "" && file.Category != category {
		return false, nil
	}
	return file.OwnerID != nil && *file.OwnerID == owner.String(), nil
}

// Resolve returns the public download URL for ref.
func (s *Store) Resolve(ctx context.Context, ref string) (string, error) {
	file, err := s.Lookup(ctx, ref)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/api/v1/file/%d", s.publicBaseURL, file.ID), nil
}

// Open returns a reader over the content of ref.
func (s *Store) Open(ctx context.Context, ref string) (*Object, error) {
	meta, err := s.Lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	obj := &Object{
		File:      *meta,
		FileName:  fmt.Sprint(meta.ID) + meta.Extension,
		MediaType: mediaType(meta.Extension),
	}

	if meta.ObjectName != nil {
		if s.objects == nil {
			return nil, apperror.Internal("cloud storage is disabled while the requested file is stored remotely", nil)
		}
		reader, size, err := s.objects.DownloadFile(ctx, *meta.ObjectName)
		if err != nil {
			return nil, apperror.Internal("failed to download file from storage", err)
		}
		obj.Reader, obj.Size = reader, size
		return obj, nil
	}

	var file model.File
	if err := s.db.WithContext(ctx).First(&file, meta.ID).Error; err != nil {
		return nil, apperror.Internal("failed to read file", err)
	}
	obj.Reader = io.NopCloser(bytes.NewReader(file.Content))
	obj.Size = int64(len(file.Content))
	return obj, nil
}

func mediaType(extension string) string {
	switch strings.ToLower(extension) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}
