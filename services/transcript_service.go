package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/devconnect/server/chat"
	config "github.com/devconnect/server/configs"
	"github.com/devconnect/server/models"
	"github.com/google/uuid"
)

const transcriptPageSize = 500

// TranscriptService renders a conversation's history to a PDF and stores it
// in Cloudinary.
type TranscriptService struct {
	store *chat.Store
}

func NewTranscriptService(store *chat.Store) *TranscriptService {
	return &TranscriptService{store: store}
}

// Export builds a PDF transcript of the conversation for the requester and
// returns the uploaded file's URL. Membership is enforced by the store.
func (s *TranscriptService) Export(conversationID, requesterID uuid.UUID) (string, error) {
	conversation, err := s.store.GetConversation(conversationID)
	if err != nil {
		return "", err
	}

	var messages []models.Message
	for pageNum := 1; ; pageNum++ {
		batch, err := s.store.ListMessages(conversationID, requesterID, pageNum, transcriptPageSize)
		if err != nil {
			return "", err
		}
		messages = append(messages, batch...)
		if len(batch) < transcriptPageSize {
			break
		}
	}

	htmlContent, err := buildTranscriptHTML(conversation, messages)
	if err != nil {
		return "", err
	}

	pdfBytes, err := generatePDFFromHTML(htmlContent)
	if err != nil {
		return "", err
	}

	return uploadTranscript(pdfBytes, conversationID.String())
}

func buildTranscriptHTML(conversation *models.Conversation, messages []models.Message) (string, error) {
	tmpl, err := template.ParseFiles("templates/transcript.html")
	if err != nil {
		return "", err
	}

	title := "Conversation"
	if conversation.IsGroup && conversation.Name != nil {
		title = *conversation.Name
	}

	type transcriptLine struct {
		Sender    string
		Content   string
		Timestamp string
	}
	lines := make([]transcriptLine, 0, len(messages))
	for _, message := range messages {
		lines = append(lines, transcriptLine{
			Sender:    message.Sender.Username,
			Content:   message.Content,
			Timestamp: message.CreatedAt.Format("Jan 2, 2006 15:04"),
		})
	}

	data := struct {
		Title       string
		ExportedAt  string
		Messages    interface{}
		MessageSize int
	}{
		Title:       title,
		ExportedAt:  time.Now().Format("January 2, 2006"),
		Messages:    lines,
		MessageSize: len(lines),
	}

	var renderedHTML bytes.Buffer
	if err := tmpl.Execute(&renderedHTML, data); err != nil {
		return "", err
	}
	return renderedHTML.String(), nil
}

func generatePDFFromHTML(htmlContent string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(context.Background())
	defer cancel()

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
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuffer, nil
}

func uploadTranscript(fileBytes []byte, conversationID string) (string, error) {
	cld, err := cloudinary.NewFromURL(config.Config("CLOUDINARY_URL"))
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	uploadParams := uploader.UploadParams{
		PublicID:     fmt.Sprintf("transcripts/%s_%s", conversationID, uuid.New().String()),
		Folder:       "devconnect_transcripts",
		ResourceType: "raw",
	}

	uploadResult, err := cld.Upload.Upload(ctx, bytes.NewReader(fileBytes), uploadParams)
	if err != nil {
		return "", err
	}

	return uploadResult.SecureURL, nil
}
