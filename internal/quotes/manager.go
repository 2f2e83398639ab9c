package quotes

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/pushups/internal/pushups/days"
)

// Manager holds the bundled quotes read from a QUOTE;AUTHOR;GENRE csv.
type Manager struct {
	Quotes        []*Quote
	AuthorsQuotes map[string][]*Quote
	GenresQuotes  map[string][]*Quote
}

func NewManagerFromFile(path string) (_ *Manager, err error) {
	quotesCsvFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open quotes file: %w", err)
	}
	defer func() {
		if closeErr := quotesCsvFile.Close(); closeErr != nil {
			log.Warnf("close quotes csv file: %s", closeErr)
		}
	}()

	return NewManager(csv.NewReader(quotesCsvFile))
}

func NewManager(quotesCsvReader *csv.Reader) (*Manager, error) {
	qm := &Manager{
		AuthorsQuotes: make(map[string][]*Quote),
		GenresQuotes:  make(map[string][]*Quote),
	}

	log.Println("reading quotes CSV ...")

	quotesCsvReader.Comma = ';'
	quotesCsvReader.FieldsPerRecord = -1
	for {
		record, err := quotesCsvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if len(record) != 3 {
			return nil, fmt.Errorf("record [%s] does not have 3 elements", record)
		}

		// QUOTE;AUTHOR;GENRE
		quote := &Quote{
			Text:   record[0],
			Author: record[1],
			Genre:  record[2],
		}
		qm.Quotes = append(qm.Quotes, quote)

		qm.AuthorsQuotes[quote.Author] = append(qm.AuthorsQuotes[quote.Author], quote)
		qm.GenresQuotes[quote.Genre] = append(qm.GenresQuotes[quote.Genre], quote)
	}

	if len(qm.Quotes) == 0 {
		return nil, errors.New("quotes csv is empty")
	}

	log.Printf("quotes CSV read %d quotes", len(qm.Quotes))

	return qm, nil
}

func (qm *Manager) RandomQuote() *Quote {
	return qm.Quotes[rand.IntN(len(qm.Quotes))]
}

// QuoteForDay is stable for a given day and cycles through all quotes.
func (qm *Manager) QuoteForDay(day days.Day) *Quote {
	n := len(qm.Quotes)
	return qm.Quotes[((int(day)%n)+n)%n]
}
