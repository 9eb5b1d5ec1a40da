package anki

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sgchandra/anatomify/pkg/logger"
	"github.com/sgchandra/anatomify/pkg/models"
	"github.com/sgchandra/anatomify/pkg/utils"
)

const (
	DefaultAnkiConnectURL = "http://localhost:8765"
	AnatomifyModelName    = "Anatomify"
	MaxRetries            = 3
	RetryDelay            = 500 * time.Millisecond
)

// Service pushes a finished card set straight into a running Anki via the
// AnkiConnect add-on, as an alternative to file-based import.
type Service struct {
	ankiConnectURL string
	logger         *logger.Logger
	clock          func() time.Time
}

type AnkiConnectRequest struct {
	Action  string      `json:"action"`
	Version int         `json:"version"`
	Params  interface{} `json:"params"`
}

type Note struct {
	DeckName  string                 `json:"deckName"`
	ModelName string                 `json:"modelName"`
	Fields    map[string]string      `json:"fields"`
	Options   map[string]interface{} `json:"options"`
	Tags      []string               `json:"tags"`
}

func NewService(logger *logger.Logger) *Service {
	return &Service{
		ankiConnectURL: DefaultAnkiConnectURL,
		logger:         logger,
		clock:          time.Now,
	}
}

// SetURL overrides the AnkiConnect endpoint (config knob).
func (s *Service) SetURL(url string) {
	if url != "" {
		s.ankiConnectURL = url
	}
}

func (s *Service) CheckConnection() error {
	request := AnkiConnectRequest{
		Action:  "version",
		Version: ANKI_CONNECT_VERSION,
		Params:  map[string]interface{}{},
	}

	_, err := s.sendRequest(request)
	if err != nil {
		s.logger.Info("Error sending request to Anki: %v", err)
		return fmt.Errorf("could not connect to Anki. Please ensure:\n" +
			"1. Anki is running https://apps.ankiweb.net/#download\n" +
			"2. AnkiConnect add-on is installed (code: 2055492159) https://ankiweb.net/shared/info/2055492159\n" +
			"3. Anki has been restarted after installing AnkiConnect")
	}

	return nil
}

func (s *Service) ensureModelExists() error {
	request := AnkiConnectRequest{
		Action:  "modelNames",
		Version: ANKI_CONNECT_VERSION,
		Params:  map[string]interface{}{},
	}

	result, err := s.sendRequest(request)
	if err != nil {
		return fmt.Errorf("failed to get models: %w", err)
	}

	var modelNames []string
	if err := json.Unmarshal(result, &modelNames); err != nil {
		return fmt.Errorf("failed to parse model names: %w", err)
	}

	for _, name := range modelNames {
		if name == AnatomifyModelName {
			s.logger.Debug("Anatomify model already exists")
			return nil
		}
	}

	createRequest := AnkiConnectRequest{
		Action:  "createModel",
		Version: ANKI_CONNECT_VERSION,
		Params: map[string]interface{}{
			"modelName": AnatomifyModelName,
			"inOrderFields": []string{
				"Front",
				"Back",
				"Hash",
			},
			"css": `.card {
                font-family: arial;
                font-size: 20px;
                text-align: center;
                color: black;
                background-color: white;
            }
            .hash { display: none; }`,
			"cardTemplates": []map[string]interface{}{
				{
					"Name": "Card 1",
					"Front": `{{Front}}
                        <div class="hash">{{Hash}}</div>`,
					"Back": `{{FrontSide}}
                        <hr id="answer">
                        {{Back}}`,
				},
			},
		},
	}

	_, err = s.sendRequest(createRequest)
	if err != nil {
		return fmt.Errorf("failed to create model: %w", err)
	}

	s.logger.Info("Created Anatomify model")
	return nil
}

func (s *Service) CreateDeck(deckName string) error {
	s.logger.Info("Creating deck: %s", deckName)
	request := AnkiConnectRequest{
		Action:  "createDeck",
		Version: ANKI_CONNECT_VERSION,
		Params: map[string]string{
			"deck": deckName,
		},
	}

	_, err := s.sendRequest(request)
	return err
}

func (s *Service) findExistingNoteByHash(hash string) (int, error) {
	request := AnkiConnectRequest{
		Action:  "findNotes",
		Version: ANKI_CONNECT_VERSION,
		Params: map[string]interface{}{
			"query": fmt.Sprintf("Hash:%s", hash),
		},
	}

	result, err := s.sendRequest(request)
	if err != nil {
		return 0, fmt.Errorf("failed to search notes: %w", err)
	}

	var noteIds []int
	if err := json.Unmarshal(result, &noteIds); err != nil {
		return 0, fmt.Errorf("failed to parse note IDs: %w", err)
	}

	if len(noteIds) > 0 {
		return noteIds[0], nil
	}

	return 0, nil
}

// AddFlashcard pushes one card. A rendered image is stored as an Anki
// media file and referenced from the front field; text-only cards go
// through unchanged.
func (s *Service) AddFlashcard(deckName string, card models.Flashcard, index int) error {
	if err := s.ensureModelExists(); err != nil {
		return fmt.Errorf("failed to ensure model exists: %w", err)
	}

	contentHash := utils.FlashcardHash(card.Front, card.Back, card.Tags)
	s.logger.Debug("content hash for card %d: %s", index, contentHash)

	existingNoteId, err := s.findExistingNoteByHash(contentHash)
	if err != nil {
		s.logger.Debug("Warning: failed to check for existing note: %v", err)
	} else if existingNoteId != 0 {
		s.logger.Info("Skipping duplicate flashcard with hash: %s", contentHash)
		return nil
	}

	front := card.Front
	if len(card.Image) > 0 {
		ext := utils.ExtensionForMediaType(card.ImageMediaType)
		mediaName := utils.MediaFileName(deckNameForTag(deckName), index, s.clock(), ext)

		if err := s.storeMediaFile(mediaName, card.Image); err != nil {
			return fmt.Errorf("failed to store media file: %w", err)
		}
		front = fmt.Sprintf("%s<br><img src=\"%s\">", front, mediaName)
	}

	note := Note{
		DeckName:  deckName,
		ModelName: AnatomifyModelName,
		Fields: map[string]string{
			"Front": front,
			"Back":  card.Back,
			"Hash":  contentHash,
		},
		Options: map[string]interface{}{
			"allowDuplicate": false,
		},
		Tags: append([]string{"anatomify", deckNameForTag(deckName)}, card.Tags...),
	}

	request := AnkiConnectRequest{
		Action:  "addNote",
		Version: ANKI_CONNECT_VERSION,
		Params: map[string]interface{}{
			"note": note,
		},
	}

	_, err = s.sendRequest(request)
	if err != nil {
		return fmt.Errorf("failed to add note: %w", err)
	}

	s.logger.Debug("Successfully added flashcard %d with hash: %s", index, contentHash)
	return nil
}

// AddAllFlashcards pushes the whole set, counting per-card failures
// instead of aborting on the first one.
func (s *Service) AddAllFlashcards(deckName string, cards []models.Flashcard) error {
	var successCount, failCount int

	for i, card := range cards {
		if err := s.AddFlashcard(deckName, card, i+1); err != nil {
			s.logger.Debug("Error adding flashcard: %v", err)
			failCount++
			continue
		}
		successCount++
	}

	if failCount > 0 {
		return fmt.Errorf("failed to add %d out of %d flashcards", failCount, len(cards))
	}

	s.logger.Debug("Successfully added %d flashcards", successCount)

	return nil
}

func (s *Service) storeMediaFile(filename string, data []byte) error {
	request := AnkiConnectRequest{
		Action:  "storeMediaFile",
		Version: ANKI_CONNECT_VERSION,
		Params: map[string]string{
			"filename": filename,
			"data":     base64.StdEncoding.EncodeToString(data),
		},
	}

	if _, err := s.sendRequest(request); err != nil {
		return fmt.Errorf("failed to store media file %s: %w", filename, err)
	}
	return nil
}

func (s *Service) sendRequest(req AnkiConnectRequest) (json.RawMessage, error) {
	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Info("Retrying request (attempt %d/%d)...", attempt+1, MaxRetries)
			time.Sleep(RetryDelay)
		}

		reqBody, err := json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		resp, err := http.Post(s.ankiConnectURL, "application/json", bytes.NewBuffer(reqBody))
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		var result struct {
			Error  *string         `json:"error"`
			Result json.RawMessage `json:"result"`
		}

		if err := json.Unmarshal(body, &result); err != nil {
			lastErr = fmt.Errorf("failed to parse response: %w", err)
			continue
		}

		if result.Error != nil {
			lastErr = fmt.Errorf("anki error: %s", *result.Error)
			continue
		}

		return result.Result, nil
	}

	return nil, fmt.Errorf("after %d attempts: %v", MaxRetries, lastErr)
}
