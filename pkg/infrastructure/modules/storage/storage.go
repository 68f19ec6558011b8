// Package storage provides local-filesystem implementations of the file
// capabilities: stat, list, delete, transfer into a library layout, and
// metadata scraping.
package storage

import (
	"context"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mediamate/mediamate/pkg/domain/errors"
	"github.com/mediamate/mediamate/pkg/domain/media"
	"github.com/mediamate/mediamate/pkg/service/chain"
)

// StorageName is the storage identifier this module answers for.
const StorageName = "local"

// Module serves the local filesystem as a storage backend.
type Module struct {
	logger zerolog.Logger
}

// New creates the local storage module.
func New(logger zerolog.Logger) *Module {
	return &Module{logger: logger.With().Str("module", "storage").Logger()}
}

// Name implements chain.Module.
func (m *Module) Name() string { return "storage" }

// Init implements chain.Module.
func (m *Module) Init(ctx context.Context) error { return nil }

// Stop implements chain.Module.
func (m *Module) Stop(ctx context.Context) error { return nil }

// Test implements chain.Module.
func (m *Module) Test(ctx context.Context) (bool, string) { return true, "" }

// Capabilities implements chain.Module.
func (m *Module) Capabilities() map[chain.Capability]chain.Handler {
	return map[chain.Capability]chain.Handler{
		chain.CapGetFileItem:    m.getFileItem,
		chain.CapListFiles:      m.listFiles,
		chain.CapDeleteFile:     m.deleteFile,
		chain.CapExists:         m.exists,
		chain.CapDoTransfer:     m.doTransfer,
		chain.CapScrapeMetadata: m.scrapeMetadata,
	}
}

// answers reports whether this module serves the named storage. An empty
// storage name defaults to local.
func (m *Module) answers(storage string) bool {
	return storage == "" || storage == StorageName
}

func (m *Module) getFileItem(ctx context.Context, args chain.Args) (any, error) {
	if !m.answers(args.String("storage")) {
		return nil, nil
	}
	path := args.String("path")
	if path == "" {
		return nil, errors.New(errors.CodeMissingParameter, "storage", "path is required", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.New(errors.CodeIoError, "storage", "stat failed", err)
	}
	item := fileItem(path, info)
	return &item, nil
}

func (m *Module) listFiles(ctx context.Context, args chain.Args) (any, error) {
	item, ok := args["fileitem"].(media.FileItem)
	if !ok || !m.answers(item.Storage) {
		return nil, nil
	}
	if item.Type != media.FileItemDir {
		return nil, errors.New(errors.CodeInvalidParameter, "storage", "list target is not a directory", nil)
	}
	dirEntries, err := os.ReadDir(item.Path)
	if err != nil {
		return nil, errors.New(errors.CodeIoError, "storage", "read dir failed", err)
	}
	items := make([]media.FileItem, 0, len(dirEntries))
	for _, entry := range dirEntries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		items = append(items, fileItem(filepath.Join(item.Path, entry.Name()), info))
	}
	return items, nil
}

func (m *Module) deleteFile(ctx context.Context, args chain.Args) (any, error) {
	item, ok := args["fileitem"].(media.FileItem)
	if !ok || !m.answers(item.Storage) {
		return nil, nil
	}
	if err := os.RemoveAll(item.Path); err != nil {
		return nil, errors.New(errors.CodeIoError, "storage", "delete failed", err)
	}
	return true, nil
}

func (m *Module) exists(ctx context.Context, args chain.Args) (any, error) {
	if !m.answers(args.String("storage")) {
		return nil, nil
	}
	_, err := os.Stat(args.String("path"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return nil, errors.New(errors.CodeIoError, "storage", "stat failed", err)
	}
	return true, nil
}

func (m *Module) doTransfer(ctx context.Context, args chain.Args) (any, error) {
	item, ok := args["fileitem"].(media.FileItem)
	if !ok || !m.answers(item.Storage) {
		return nil, nil
	}
	target := args.String("target")
	if target == "" {
		return &chain.TransferResult{OK: false, Message: "target path is required"}, nil
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return &chain.TransferResult{OK: false, Message: "failed to create target: " + err.Error()}, nil
	}

	dest := filepath.Join(target, item.Name)
	if err := os.Rename(item.Path, dest); err != nil {
		// cross-device moves fall back to copy
		if copyErr := copyFile(item.Path, dest); copyErr != nil {
			return &chain.TransferResult{OK: false, Message: "transfer failed: " + copyErr.Error()}, nil
		}
	}
	m.logger.Info().Str("from", item.Path).Str("to", dest).Msg("file transferred")
	return &chain.TransferResult{OK: true, Target: dest}, nil
}

// nfo is the minimal metadata sidecar written next to a media file.
type nfo struct {
	XMLName xml.Name `xml:"media"`
	Title   string   `xml:"title"`
	Year    string   `xml:"year,omitempty"`
	Type    string   `xml:"type"`
	Season  int      `xml:"season,omitempty"`
	Episode int      `xml:"episode,omitempty"`
	TMDBID  int64    `xml:"tmdbid,omitempty"`
}

func (m *Module) scrapeMetadata(ctx context.Context, args chain.Args) (any, error) {
	item, ok := args["fileitem"].(media.FileItem)
	if !ok || !m.answers(item.Storage) {
		return nil, nil
	}
	meta, _ := args["meta"].(media.MetaInfo)
	identified, _ := args["media"].(*media.Media)
	if identified == nil {
		return nil, errors.New(errors.CodeMissingParameter, "storage", "identified media is required for scraping", nil)
	}

	doc := nfo{
		Title:   identified.Title,
		Year:    identified.Year,
		Type:    string(identified.Type),
		Season:  identified.Season,
		Episode: meta.Episode,
		TMDBID:  identified.TMDBID,
	}
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.New(errors.CodeInternalError, "storage", "failed to encode nfo", err)
	}

	base := strings.TrimSuffix(item.Path, filepath.Ext(item.Path))
	if err := os.WriteFile(base+".nfo", append([]byte(xml.Header), data...), 0o644); err != nil {
		return nil, errors.New(errors.CodeIoError, "storage", "failed to write nfo", err)
	}
	return true, nil
}

func fileItem(path string, info os.FileInfo) media.FileItem {
	itemType := media.FileItemFile
	if info.IsDir() {
		itemType = media.FileItemDir
	}
	name := info.Name()
	ext := filepath.Ext(name)
	return media.FileItem{
		Storage:   StorageName,
		Path:      path,
		Type:      itemType,
		Name:      name,
		Basename:  strings.TrimSuffix(name, ext),
		Extension: strings.TrimPrefix(ext, "."),
		Size:      info.Size(),
	}
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
