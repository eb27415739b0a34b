package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Afefmejri25/crm/i18n"
	"github.com/Afefmejri25/crm/models"
	"github.com/Afefmejri25/crm/store"
	"github.com/spf13/cobra"
)

func documentTable(w io.Writer, docs []models.Document) error {
	rows := make([][]string, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, []string{d.ID, d.CreatedAt.Local().Format(dateLayout), d.Title, deref(d.Description), d.FileType, d.FileURL})
	}
	return table(w, []string{"ID", "DATE", "TITLE", "DESCRIPTION", "TYPE", "URL"}, rows)
}

func newDocumentsCommand(r *runner) *cobra.Command {
	var query string

	list := func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			query = args[0]
		}
		return r.authed(cmd, func(app *store.App, p *Printer) error {
			if err := app.Documents.SearchDocuments(app.Context(), query); err != nil {
				return err
			}
			docs := app.Documents.State().Documents
			return p.Print(docs, func(w io.Writer) error {
				heading(w, p.T.T(i18n.DashboardDocuments))
				return documentTable(w, docs)
			})
		})
	}

	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Browse and share documents",
		Args:  cobra.NoArgs,
		RunE:  list,
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List shared documents, newest first",
		Args:  cobra.NoArgs,
		RunE:  list,
	}
	listCmd.Flags().StringVarP(&query, "search", "s", "", "only documents whose title or description contains this text")
	cmd.AddCommand(listCmd)
	cmd.AddCommand(&cobra.Command{
		Use:   "search <text>",
		Short: "Search documents by title or description",
		Args:  cobra.ExactArgs(1),
		RunE:  list,
	})
	cmd.AddCommand(newDocumentUploadCommand(r))
	cmd.AddCommand(newDocumentDeleteCommand(r))

	return cmd
}

func newDocumentUploadCommand(r *runner) *cobra.Command {
	var title, description, contentType string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file to the document library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			name := filepath.Base(args[0])
			upload := store.Upload{
				Filename:    name,
				ContentType: contentType,
				Body:        f,
				Title:       title,
			}
			if upload.Title == "" {
				upload.Title = strings.TrimSuffix(name, filepath.Ext(name))
			}
			if cmd.Flags().Changed("description") {
				upload.Description = &description
			}

			return r.authed(cmd, func(app *store.App, p *Printer) error {
				doc, err := app.Documents.UploadDocument(app.Context(), upload)
				if doc == nil {
					return err
				}
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
				}
				return p.Print(doc, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Uploaded %s (%s)\n%s\n", doc.Title, doc.ID, doc.FileURL)
					return err
				})
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "document title (defaults to the file name)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "document description")
	cmd.Flags().StringVar(&contentType, "type", "", "content type (guessed from the extension when empty)")

	return cmd
}

func newDocumentDeleteCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a document and its file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.authed(cmd, func(app *store.App, p *Printer) error {
				if err := app.Documents.FetchDocuments(app.Context()); err != nil {
					return err
				}
				if err := app.Documents.DeleteDocument(app.Context(), args[0]); err != nil {
					return err
				}
				return p.Print(map[string]string{"deleted": args[0]}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Deleted document %s\n", args[0])
					return err
				})
			})
		},
	}
}
