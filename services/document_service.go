package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// PDFRenderer turns a rendered HTML document into a PDF.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
}

// DocumentArchive stores a generated PDF and returns its public URL.
type DocumentArchive interface {
	Upload(ctx context.Context, name string, pdf []byte) (string, error)
}

// ChromePDFRenderer prints HTML through a headless Chrome.
type ChromePDFRenderer struct {
	Timeout time.Duration
}

func NewChromePDFRenderer() *ChromePDFRenderer {
	return &ChromePDFRenderer{Timeout: 30 * time.Second}
}

func (r *ChromePDFRenderer) RenderPDF(ctx context.Context, htmlContent string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()
	if r.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, r.Timeout)
		defer cancelTimeout()
	}

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chromedp print: %w", err)
	}
	return pdfBuffer, nil
}

// CloudinaryArchive uploads documents as raw assets.
type CloudinaryArchive struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryArchive(url, folder string) (*CloudinaryArchive, error) {
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &CloudinaryArchive{cld: cld, folder: folder}, nil
}

func (a *CloudinaryArchive) Upload(ctx context.Context, name string, pdf []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	uploadParams := uploader.UploadParams{
		PublicID:     fmt.Sprintf("%s_%s", name, uuid.New().String()),
		Folder:       a.folder,
		ResourceType: "raw",
	}

	uploadResult, err := a.cld.Upload.Upload(ctx, bytes.NewReader(pdf), uploadParams)
	if err != nil {
		return "", err
	}
	return uploadResult.SecureURL, nil
}
