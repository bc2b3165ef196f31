// Package parser loads benchmark question sets from files. Question sets
// are authored by hand, usually in a spreadsheet with one row per question:
// number, question text, reference answer.
package parser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"embedding-bench/internal/models"
)

// LoadQuestions dispatches on file extension.
func LoadQuestions(path string) ([]models.Question, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return QuestionsFromXLSX(path)
	case ".json":
		return QuestionsFromJSON(path)
	default:
		return nil, fmt.Errorf("unsupported question file format: %s", filepath.Ext(path))
	}
}

// QuestionsFromXLSX reads the first sheet of a workbook. The first row is
// treated as a header when its number cell is not numeric. Rows with an
// empty question cell are skipped; a missing number cell falls back to the
// running row count.
func QuestionsFromXLSX(path string) ([]models.Question, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	var questions []models.Question
	for i, row := range rows {
		if len(row) < 2 || strings.TrimSpace(row[1]) == "" {
			continue
		}
		number, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			if i == 0 {
				continue // header row
			}
			number = len(questions) + 1
		}
		q := models.Question{Number: number, Text: strings.TrimSpace(row[1])}
		if len(row) > 2 {
			q.ReferenceAnswer = strings.TrimSpace(row[2])
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("no questions found in %s", path)
	}
	return questions, nil
}

type questionJSON struct {
	Number int    `json:"number"`
	Text   string `json:"question"`
	Answer string `json:"answer"`
}

func QuestionsFromJSON(path string) ([]models.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []questionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no questions found in %s", path)
	}
	questions := make([]models.Question, len(raw))
	for i, q := range raw {
		number := q.Number
		if number == 0 {
			number = i + 1
		}
		questions[i] = models.Question{Number: number, Text: q.Text, ReferenceAnswer: q.Answer}
	}
	return questions, nil
}
