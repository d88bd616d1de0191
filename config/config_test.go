package config

import (
	"errors"
	"io/ioutil"
	"os"
	"path"
	"reflect"
	"strings"
	"testing"
)

func tempConfigFile(t *testing.T) *File {
	dir, err := ioutil.TempDir("", "deskpipe-config")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return NewConfigFileWithDir(path.Join(dir, MainDir), MainFileFullName)
}

func TestFile_SetGetDelete(t *testing.T) {
	c := tempConfigFile(t)
	if keys, err := c.GetAllKeys(); err != nil || len(keys) != 0 {
		t.Fatalf("expected an empty file; got %v, %v", keys, err)
	}
	if err := c.Set("sink-dsn", "stdout:"); err != nil {
		t.Fatal(err)
	}
	if err := c.Set("lookback", "24h"); err != nil {
		t.Fatal(err)
	}
	// Read back through a fresh File to prove the data was persisted.
	c2 := NewConfigFileWithDir(c.Dirname, c.FileName)
	keys, err := c2.GetAllKeys()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(keys, []string{"lookback", "sink-dsn"}) {
		t.Fatalf("unexpected keys %v", keys)
	}
	if v, ok := c2.GetString("sink-dsn"); !ok || v != "stdout:" {
		t.Fatalf("unexpected value %q", v)
	}
	if err := c2.Delete("sink-dsn"); err != nil {
		t.Fatal(err)
	}
	var s string
	if err := c2.Get("sink-dsn", &s); !errors.As(err, &KeyNotFoundError{}) {
		t.Fatalf("expected KeyNotFoundError; got %v", err)
	}
	if err := c2.Delete("missing"); err == nil {
		t.Fatal("expected error deleting a missing key")
	}
}

func TestFile_IsEncryptedAtRest(t *testing.T) {
	c := tempConfigFile(t)
	if err := c.Set("api-key", "secret-value"); err != nil {
		t.Fatal(err)
	}
	b, err := ioutil.ReadFile(c.FullPath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "secret-value") {
		t.Fatal("expected the value to be encrypted on disk")
	}
}

func TestFile_GetNeedsPointer(t *testing.T) {
	c := tempConfigFile(t)
	if err := c.Get("x", "not a pointer"); err == nil {
		t.Fatal("expected error")
	}
}

func validJob() *JobConfig {
	j := NewJobConfig()
	j.Helpdesk.BaseUrl = "https://example.octadesk.services"
	j.Helpdesk.ApiKey = "k"
	j.Helpdesk.AgentEmail = "agent@example.com"
	j.Sink.Dsn = "stdout:"
	j.Sink.Table = "proj.lake.sac"
	return j
}

func TestJobConfig_Validate(t *testing.T) {
	if err := validJob().Validate(); err != nil {
		t.Fatal(err)
	}
	j := NewJobConfig()
	err := j.Validate()
	if err == nil {
		t.Fatal("expected error for missing mandatory values")
	}
	for _, txt := range []string{"helpdesk API URL", "helpdesk API key", "helpdesk agent email", "sink DSN", "target table"} {
		if !strings.Contains(err.Error(), txt) {
			t.Fatalf("expected %q in error %q", txt, err)
		}
	}
	bad := validJob()
	bad.Sink.Table = "sac"
	if bad.Validate() == nil {
		t.Fatal("expected error for a table without project and dataset")
	}
	bad = validJob()
	bad.ChatMode = "stream"
	if bad.Validate() == nil {
		t.Fatal("expected error for an unknown chat mode")
	}
	bad = validJob()
	bad.DedupPolicy = "both"
	if bad.Validate() == nil {
		t.Fatal("expected error for an unknown dedup policy")
	}
	bad = validJob()
	bad.Archive.Url = "s3://bucket/prefix"
	if bad.Validate() == nil {
		t.Fatal("expected error for an archive without region")
	}
	bad.Archive.Region = "sa-east-1"
	if err := bad.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestEncryptedFile_SetReplacesAndGetDetectsTampering(t *testing.T) {
	c := tempConfigFile(t)
	f := NewEncryptedFile(c.Dirname, c.FileName)
	if _, err := f.Get(); !errors.As(err, &FileNotFoundError{}) {
		t.Fatalf("expected FileNotFoundError before the first write; got %v", err)
	}
	for _, text := range []string{"first", "second"} {
		if err := f.Set([]byte(text)); err != nil {
			t.Fatal(err)
		}
	}
	got, err := f.Get()
	if err != nil || string(got) != "second" {
		t.Fatalf("expected the last value; got %q, %v", got, err)
	}
	if _, err := os.Stat(f.FullPath + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("expected no temporary file to be left behind")
	}
	if err := ioutil.WriteFile(f.FullPath, []byte("bm90IHNlYWxlZA=="), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Get(); err == nil {
		t.Fatal("expected an error reading a file that was not sealed")
	}
}
