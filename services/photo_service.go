package services

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PhotoService resolves profile photo keys to short-lived presigned read
// URLs.
type PhotoService struct {
	Presigner *s3.PresignClient
	Bucket    string
}

func NewPhotoService(client *s3.Client, bucket string) *PhotoService {
	return &PhotoService{Presigner: s3.NewPresignClient(client), Bucket: bucket}
}

// ReadURL generates a presigned URL for reading a photo object.
func (ps *PhotoService) ReadURL(ctx context.Context, key string) (string, error) {
	params := &s3.GetObjectInput{
		Bucket: aws.String(ps.Bucket),
		Key:    aws.String(key),
	}
	presigned, err := ps.Presigner.PresignGetObject(ctx, params, s3.WithPresignExpires(5*time.Minute))
	if err != nil {
		return "", err
	}
	return presigned.URL, nil
}
