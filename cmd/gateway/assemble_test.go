package main

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"gateway/internal/infra"
	"gateway/internal/providers/image"
	"gateway/internal/providers/workersai"
)

func baseConfig() *infra.Config {
	return &infra.Config{
		MaxUploadBytes:        1024,
		MaxPromptLength:       500,
		UpstreamTimeout:       time.Second,
		ImageProvider:         infra.ImageProviderWorkersAI,
		RemoverProvider:       infra.RemoverProviderHTTP,
		WorkersAIAccountID:    "acct",
		WorkersAIAPIToken:     "token",
		WorkersAIImageModel:   "@cf/stabilityai/stable-diffusion-xl-base-1.0",
		WorkersAIRemovalModel: "@cf/transparent-background/removal",
		RemovalAPIURL:         "https://removal.example.com/v1/remove",
		RateLimitPerMin:       30,
	}
}

func TestAssembleWithoutOptionalServices(t *testing.T) {
	cfg := baseConfig()
	cfg.OutputDir = filepath.Join(t.TempDir(), "outputs")

	deps, err := assemble(context.Background(), cfg, *infra.DiscardLogger())
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	defer deps.close(context.Background())

	if deps.app == nil || deps.rateLimitStore == nil {
		t.Fatalf("incomplete deps: %+v", deps)
	}
	if deps.historyEnabled {
		t.Fatalf("history enabled without DATABASE_URL")
	}
	if deps.countryLookup != nil {
		t.Fatalf("country lookup set without GEOIP_DB_PATH")
	}
	if deps.removerName != "removal-api" {
		t.Fatalf("remover = %q", deps.removerName)
	}
}

func TestBuildGenerator(t *testing.T) {
	tests := []struct {
		name      string
		provider  string
		creds     bool
		openAIKey string
		wantErr   bool
		wantName  string
	}{
		{name: "workersai", provider: infra.ImageProviderWorkersAI, creds: true, wantName: "workersai:@cf/stabilityai/stable-diffusion-xl-base-1.0"},
		{name: "workersai without credentials or fallback", provider: infra.ImageProviderWorkersAI, wantErr: true},
		{name: "workersai with openai fallback", provider: infra.ImageProviderWorkersAI, openAIKey: "sk-test", wantName: "workersai:@cf/stabilityai/stable-diffusion-xl-base-1.0"},
		{name: "openai", provider: infra.ImageProviderOpenAI, openAIKey: "sk-test", wantName: "openai:dall-e-3"},
		{name: "openai without key", provider: infra.ImageProviderOpenAI, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.ImageProvider = tc.provider
			cfg.OpenAIImageModel = "dall-e-3"
			opts := workersai.Options{}
			if tc.creds {
				opts.AccountID, opts.APIToken = "acct", "token"
			}
			client, err := workersai.NewClient(opts)
			if err != nil {
				t.Fatalf("NewClient: %v", err)
			}
			gen, err := buildGenerator(cfg, client, tc.openAIKey, http.DefaultClient)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("buildGenerator: %v", err)
			}
			if got := image.ProviderName(gen); got != tc.wantName {
				t.Fatalf("ProviderName = %q, want %q", got, tc.wantName)
			}
		})
	}
}

func TestBuildRemover(t *testing.T) {
	client, _ := workersai.NewClient(workersai.Options{AccountID: "acct", APIToken: "token"})
	noCreds, _ := workersai.NewClient(workersai.Options{})

	cfg := baseConfig()
	cfg.RemoverProvider = infra.RemoverProviderWorkersAI
	r, err := buildRemover(context.Background(), cfg, client, "", http.DefaultClient, infra.DiscardLogger())
	if err != nil {
		t.Fatalf("workersai remover: %v", err)
	}
	if r.Name() != "workersai:@cf/transparent-background/removal" {
		t.Fatalf("Name = %q", r.Name())
	}
	if _, err := buildRemover(context.Background(), cfg, noCreds, "", http.DefaultClient, infra.DiscardLogger()); err == nil {
		t.Fatalf("expected error without credentials")
	}

	cfg.RemoverProvider = infra.RemoverProviderWASM
	cfg.WASMModelPath = filepath.Join(t.TempDir(), "missing.wasm")
	if _, err := buildRemover(context.Background(), cfg, client, "", http.DefaultClient, infra.DiscardLogger()); err == nil {
		t.Fatalf("expected error for missing wasm module")
	}

	cfg.RemoverProvider = infra.RemoverProviderHTTP
	cfg.RemovalAPIURL = "not a url"
	if _, err := buildRemover(context.Background(), cfg, client, "", http.DefaultClient, infra.DiscardLogger()); err == nil {
		t.Fatalf("expected error for invalid endpoint")
	}
}
