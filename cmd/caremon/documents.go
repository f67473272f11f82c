package main

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/caremon/internal/fallback"
	"github.com/mesh-intelligence/caremon/pkg/types"
)

func (a *app) newDocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "Store and retrieve uploaded documents",
	}
	cmd.AddCommand(a.newDocumentsAddCmd(), a.newDocumentsSaveCmd())
	return cmd
}

func (a *app) newDocumentsAddCmd() *cobra.Command {
	var category, uploader, name, description string
	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Store a file as a document",
		Long: `Add stores the file's contents in the documents table. The file type is
detected from the content.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return userErrorf("read %s: %w", args[0], err)
			}
			mediaType := mediaTypeOf(data)
			if name == "" {
				name = filepath.Base(args[0])
			}
			now := time.Now().UTC()
			doc := types.Document{
				Name:        name,
				Category:    category,
				FileType:    mediaType,
				FileSize:    int64(len(data)),
				UploadDate:  now.Format(time.RFC3339),
				Uploader:    uploader,
				Description: description,
				FileData:    types.EncodeFileData(mediaType, data),
				CreatedAt:   now,
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			saved, err := store.Put(cmd.Context(), types.KindDocuments, doc)
			if err != nil {
				return err
			}
			stored := *saved.(*types.Document)
			stored.FileData = ""
			return a.printJSON(stored)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "document category")
	cmd.Flags().StringVar(&uploader, "uploader", "", "who uploaded the document")
	cmd.Flags().StringVar(&name, "name", "", "document name (default: the file name)")
	cmd.Flags().StringVar(&description, "description", "", "free-text description")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("uploader")
	return cmd
}

// mediaTypeOf detects the media type of data without parameters.
func mediaTypeOf(data []byte) string {
	mt, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return strings.TrimSpace(mt)
}

func (a *app) newDocumentsSaveCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "save <id>",
		Short: "Write a stored document's contents to a file",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := store.Get(cmd.Context(), types.KindDocuments, args[0])
			if err != nil {
				return err
			}
			doc := rec.(*types.Document)
			_, data, err := doc.DecodeFileData()
			if err != nil {
				return err
			}
			if out == "" {
				out = filepath.Base(doc.Name)
			}
			if err := fallback.WriteFileAtomic(out, data); err != nil {
				return err
			}
			return a.message("wrote %s (%d bytes)", out, len(data))
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: the document name)")
	return cmd
}
