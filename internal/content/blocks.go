package content

import (
	"errors"
	"fmt"
)

// ErrUnknownBlock is returned when front matter declares a block type that
// has no renderer.
var ErrUnknownBlock = errors.New("unknown block type")

// BlockKind is the declared type of a content block.
type BlockKind string

const (
	BlockCallout      BlockKind = "callout"
	BlockFAQ          BlockKind = "faq"
	BlockKeyTakeaways BlockKind = "key-takeaways"
	BlockBrokerRating BlockKind = "broker-rating"
)

// Block is a closed set of typed payloads. Only the types in this file
// implement it; renderers switch over them exhaustively.
type Block interface {
	Kind() BlockKind
	sealed()
}

type Callout struct {
	Tone  string
	Title string
	Text  string
}

type FAQItem struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

type FAQ struct {
	Items []FAQItem
}

type KeyTakeaways struct {
	Items []string
}

type BrokerRating struct {
	Score float64
	Pros  []string
	Cons  []string
}

func (Callout) Kind() BlockKind      { return BlockCallout }
func (FAQ) Kind() BlockKind          { return BlockFAQ }
func (KeyTakeaways) Kind() BlockKind { return BlockKeyTakeaways }
func (BrokerRating) Kind() BlockKind { return BlockBrokerRating }

func (Callout) sealed()      {}
func (FAQ) sealed()          {}
func (KeyTakeaways) sealed() {}
func (BrokerRating) sealed() {}

// rawBlock is the serialized form shared by front matter and the SQL store.
type rawBlock struct {
	Type      string    `yaml:"type" json:"type"`
	Tone      string    `yaml:"tone" json:"tone,omitempty"`
	Title     string    `yaml:"title" json:"title,omitempty"`
	Text      string    `yaml:"text" json:"text,omitempty"`
	Items     []string  `yaml:"items" json:"items,omitempty"`
	Questions []FAQItem `yaml:"questions" json:"questions,omitempty"`
	Score     float64   `yaml:"score" json:"score,omitempty"`
	Pros      []string  `yaml:"pros" json:"pros,omitempty"`
	Cons      []string  `yaml:"cons" json:"cons,omitempty"`
}

func decodeBlocks(raws []rawBlock) ([]Block, error) {
	blocks := make([]Block, 0, len(raws))
	for i, raw := range raws {
		b, err := decodeBlock(raw)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func decodeBlock(raw rawBlock) (Block, error) {
	switch BlockKind(raw.Type) {
	case BlockCallout:
		if raw.Text == "" {
			return nil, errors.New("callout requires text")
		}
		tone := raw.Tone
		if tone == "" {
			tone = "info"
		}
		return Callout{Tone: tone, Title: raw.Title, Text: raw.Text}, nil
	case BlockFAQ:
		if len(raw.Questions) == 0 {
			return nil, errors.New("faq requires at least one question")
		}
		return FAQ{Items: raw.Questions}, nil
	case BlockKeyTakeaways:
		return KeyTakeaways{Items: raw.Items}, nil
	case BlockBrokerRating:
		if raw.Score < 0 || raw.Score > 5 {
			return nil, fmt.Errorf("broker rating score %.1f out of range 0-5", raw.Score)
		}
		return BrokerRating{Score: raw.Score, Pros: raw.Pros, Cons: raw.Cons}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlock, raw.Type)
	}
}
