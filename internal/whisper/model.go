package whisper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const DefaultModelName = "base"

// Asset describes a downloadable ggml model file.
type Asset struct {
	Name     string
	FileName string
	URL      string
	SHA256   string
}

type ResolvedAsset struct {
	Name          string
	Path          string
	URL           string
	SHA256        string
	NeedsDownload bool
	IsCustomPath  bool
}

const assetBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

var assets = map[string]Asset{
	"tiny": {
		Name:     "tiny",
		FileName: "ggml-tiny.bin",
		SHA256:   "be07e048e1e599ad46341c8d2a135645097a538221678b7acdd1b1919c6e1b21",
	},
	"base": {
		Name:     "base",
		FileName: "ggml-base.bin",
		SHA256:   "60ed5bc3dd14eea856493d334349b405782ddcaf0028d4b5df4088345fba2efe",
	},
	"small": {
		Name:     "small",
		FileName: "ggml-small.bin",
		SHA256:   "1be3a9b2063867b937e64e2ec7483364a79917e157fa98c5d94b5c1fffea987b",
	},
	"medium": {
		Name:     "medium",
		FileName: "ggml-medium.bin",
		SHA256:   "6c14d5adee5f86394037b4e4e8b59f1673b6cee10e3cf0b11bbdbee79c156208",
	},
	"large-v3": {
		Name:     "large-v3",
		FileName: "ggml-large-v3.bin",
		SHA256:   "64d182b440b98d5203c4f9bd541544d84c605196c4f7b845dfa11fb23594d1e2",
	},
}

// Model names accepted by openai-whisper that map onto a ggml asset.
var assetAliases = map[string]string{
	"large": "large-v3",
}

func init() {
	for name, asset := range assets {
		asset.URL = assetBaseURL + asset.FileName
		assets[name] = asset
	}
}

func AssetNames() []string {
	names := make([]string, 0, len(assets))
	for name := range assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func LookupAsset(name string) (Asset, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := assetAliases[key]; ok {
		key = alias
	}
	asset, ok := assets[key]
	return asset, ok
}

// ResolveAsset maps a model name or a path to a .bin file onto a location on
// disk. Named models live in modelDir and may still need to be downloaded;
// custom paths must already exist.
func ResolveAsset(ref, modelDir string) (ResolvedAsset, error) {
	if strings.TrimSpace(ref) == "" {
		ref = DefaultModelName
	}

	if asset, ok := LookupAsset(ref); ok {
		if strings.TrimSpace(modelDir) == "" {
			return ResolvedAsset{}, errors.New("model directory must not be empty for named model")
		}

		path := filepath.Join(modelDir, asset.FileName)
		_, statErr := os.Stat(path)
		if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
			return ResolvedAsset{}, fmt.Errorf("stat model path: %w", statErr)
		}

		return ResolvedAsset{
			Name:          asset.Name,
			Path:          path,
			URL:           asset.URL,
			SHA256:        asset.SHA256,
			NeedsDownload: errors.Is(statErr, os.ErrNotExist),
		}, nil
	}

	if !looksLikePath(ref) {
		return ResolvedAsset{}, fmt.Errorf("unknown model %q (known models: %s)", ref, strings.Join(AssetNames(), ", "))
	}

	path := filepath.Clean(ref)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ResolvedAsset{}, fmt.Errorf("custom model path does not exist: %s", path)
		}
		return ResolvedAsset{}, fmt.Errorf("stat custom model path: %w", err)
	}

	return ResolvedAsset{
		Name:         filepath.Base(path),
		Path:         path,
		IsCustomPath: true,
	}, nil
}

func looksLikePath(input string) bool {
	return strings.ContainsRune(input, os.PathSeparator) || strings.HasSuffix(strings.ToLower(input), ".bin")
}
