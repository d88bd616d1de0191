package s3

import (
	"bytes"
	"context"
	"io/ioutil"
	"reflect"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// memoryS3 keeps objects in a map. Methods not overridden panic via the nil embedded interface.
type memoryS3 struct {
	s3iface.S3API
	objects map[string][]byte
}

func (m *memoryS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	b, err := ioutil.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)] = b
	return &s3.PutObjectOutput{}, nil
}

func (m *memoryS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	b, ok := m.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "missing", nil)
	}
	return &s3.GetObjectOutput{Body: ioutil.NopCloser(bytes.NewReader(b))}, nil
}

func (m *memoryS3) ListObjectsPagesWithContext(_ aws.Context, in *s3.ListObjectsInput, fn func(*s3.ListObjectsOutput, bool) bool, _ ...request.Option) error {
	out := &s3.ListObjectsOutput{}
	prefix := aws.StringValue(in.Bucket) + "/" + aws.StringValue(in.Prefix)
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out.Contents = append(out.Contents, &s3.Object{Key: aws.String(strings.TrimPrefix(k, aws.StringValue(in.Bucket)+"/"))})
		}
	}
	fn(out, true)
	return nil
}

func TestBasicClient_PutGetList(t *testing.T) {
	api := &memoryS3{objects: make(map[string][]byte)}
	c := NewBasicClientWithAPI(AwsS3Bucket{Name: "bucket", Prefix: "archive/", Region: "sa-east-1"}, api)
	ctx := context.Background()
	if err := c.Put(ctx, "a.jsonl", []byte("{}\n")); err != nil {
		t.Fatal(err)
	}
	if _, ok := api.objects["bucket/archive/a.jsonl"]; !ok {
		t.Fatalf("expected object under the prefix; got %v", api.objects)
	}
	got, err := c.Get(ctx, "a.jsonl")
	if err != nil || string(got) != "{}\n" {
		t.Fatalf("unexpected get result %q, %v", got, err)
	}
	if _, err := c.Get(ctx, "missing"); err != ErrKeyNotFound {
		t.Fatalf("expected ErrKeyNotFound; got %v", err)
	}
	keys, err := c.List(ctx, "")
	if err != nil || !reflect.DeepEqual(keys, []string{"archive/a.jsonl"}) {
		t.Fatalf("unexpected keys %v, %v", keys, err)
	}
}

func TestParseDSN(t *testing.T) {
	cases := []struct {
		in       string
		expected AwsS3Bucket
	}{
		{"s3://bucket/some/prefix/", AwsS3Bucket{Name: "bucket", Prefix: "some/prefix", Region: "sa-east-1"}},
		{"bucket", AwsS3Bucket{Name: "bucket", Region: "sa-east-1"}},
	}
	for _, c := range cases {
		got, err := ParseDSN(c.in, "sa-east-1")
		if err != nil {
			t.Fatal(err)
		}
		if got != c.expected {
			t.Fatalf("expected %+v; got %+v", c.expected, got)
		}
	}
	if _, err := ParseDSN("gs://bucket", "sa-east-1"); err == nil {
		t.Fatal("expected error for the wrong scheme")
	}
	if _, err := ParseDSN("s3://bucket", ""); err == nil {
		t.Fatal("expected error for a missing region")
	}
	if s := (AwsS3Bucket{Name: "b", Prefix: "p"}).String(); s != "s3://b/p" {
		t.Fatalf("unexpected string %v", s)
	}
}
