package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/examhall/internal/model"
)

// ExportExam builds an export-ready view of every graded result of one exam.
func (s *Store) ExportExam(ctx context.Context, examID int64) (model.ExamExport, error) {
	e, err := s.GetExam(ctx, examID)
	if err != nil {
		return model.ExamExport{}, fmt.Errorf("get exam %d: %w", examID, err)
	}
	questions, err := s.ListQuestions(ctx, examID)
	if err != nil {
		return model.ExamExport{}, fmt.Errorf("list questions: %w", err)
	}
	rows, err := s.ListExamResults(ctx, examID)
	if err != nil {
		return model.ExamExport{}, fmt.Errorf("list results: %w", err)
	}

	export := model.ExamExport{
		ExamID:        e.ID,
		Title:         e.Title,
		Subject:       e.Subject,
		TotalPoints:   e.TotalPoints,
		PassingPoints: e.PassingPoints,
		NumQuestions:  len(questions),
		ExportedAt:    time.Now().UTC(),
		Results:       []model.StudentResult{},
	}

	for _, row := range rows {
		user, err := s.GetUserByID(ctx, row.Result.StudentID)
		if err != nil {
			return model.ExamExport{}, fmt.Errorf("get user %d: %w", row.Result.StudentID, err)
		}
		var username string
		if user != nil {
			username = user.Username
		}

		answers, err := s.ListAnswers(ctx, row.Result.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return model.ExamExport{}, fmt.Errorf("list answers of result %d: %w", row.Result.ID, err)
		}
		var qs []model.QuestionResult
		for _, a := range answers {
			qs = append(qs, model.QuestionResult{
				Text:          a.Question.Text,
				Kind:          a.Question.Kind,
				Points:        a.Question.Points,
				CorrectAnswer: a.Question.CorrectAnswer,
				Answer:        a.Answer.Answer,
				Correct:       a.Answer.Correct,
				Awarded:       a.Answer.Points,
			})
		}

		export.Results = append(export.Results, model.StudentResult{
			Username:          username,
			DisplayName:       row.StudentName,
			Status:            row.Result.Status,
			Score:             row.Result.Score,
			Percentage:        row.Result.Percentage,
			ElapsedMinutes:    row.Result.ElapsedMinutes,
			SubmittedAt:       row.Result.SubmittedAt,
			CertificateNumber: row.CertificateNumber,
			Questions:         qs,
		})
	}
	return export, nil
}
