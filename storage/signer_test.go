package storage

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	gotBucket string
	gotKey    string
	gotTTL    time.Duration
	err       error
}

func (f *fakePresigner) PresignGetObject(_ context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	opts := s3.PresignOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	f.gotBucket = aws.ToString(params.Bucket)
	f.gotKey = aws.ToString(params.Key)
	f.gotTTL = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://files.example.com/" + f.gotKey + "?sig=abc"}, nil
}

func TestS3SignerSignURL(t *testing.T) {
	p := &fakePresigner{}
	s := NewS3Signer(p, "claim-files")

	before := time.Now()
	signed, err := s.SignURL(context.Background(), "/claims/123/roof.jpg", 0)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/claims/123/roof.jpg?sig=abc", signed.URL)
	assert.WithinDuration(t, before.Add(time.Hour), signed.ExpiresAt, 5*time.Second)
	assert.Equal(t, "claim-files", p.gotBucket)
	assert.Equal(t, "claims/123/roof.jpg", p.gotKey)
	assert.Equal(t, time.Hour, p.gotTTL)
}

func TestS3SignerErrors(t *testing.T) {
	s := NewS3Signer(&fakePresigner{err: errors.New("boom")}, "b")

	_, err := s.SignURL(context.Background(), "a.pdf", time.Minute)
	assert.Error(t, err)

	_, err = s.SignURL(context.Background(), "", time.Minute)
	assert.Error(t, err)
}

func TestNewS3SignerFromConfigRequiresBucket(t *testing.T) {
	_, err := NewS3SignerFromConfig(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestUnconfigured(t *testing.T) {
	_, err := Unconfigured{}.SignURL(context.Background(), "x", time.Hour)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

type countingSigner struct {
	calls int32
	fail  bool
}

func (c *countingSigner) SignURL(_ context.Context, path string, ttl time.Duration) (SignedURL, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.fail {
		return SignedURL{}, errors.New("nope")
	}
	return SignedURL{URL: "signed:" + path, ExpiresAt: time.Now().Add(ttl)}, nil
}

func TestCachingSigner(t *testing.T) {
	next := &countingSigner{}
	c := NewCachingSigner(next, time.Minute)
	ctx := context.Background()

	first, err := c.SignURL(ctx, "a.pdf", time.Hour)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		again, err := c.SignURL(ctx, "a.pdf", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, "signed:a.pdf", again.URL)
		// A cached link keeps the expiry it was signed with
		assert.Equal(t, first.ExpiresAt, again.ExpiresAt)
	}
	assert.Equal(t, int32(1), next.calls)

	_, err = c.SignURL(ctx, "b.pdf", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls)
}

func TestCachingSignerDoesNotCacheFailures(t *testing.T) {
	next := &countingSigner{fail: true}
	c := NewCachingSigner(next, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := c.SignURL(context.Background(), "a.pdf", time.Hour)
		assert.Error(t, err)
	}
	assert.Equal(t, int32(2), next.calls)
}
