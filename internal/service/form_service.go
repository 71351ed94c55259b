package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"medig/internal/document"
	"medig/internal/domain"
	"medig/internal/record"
	"medig/internal/repository"
)

// FormService 表单的创建、字段编辑、预览与导出
type FormService struct {
	repo      repository.FormsRepository
	assembler *document.Assembler
	exporter  *document.Exporter
	logger    *zap.Logger
}

func NewFormService(repo repository.FormsRepository, assembler *document.Assembler, exporter *document.Exporter, logger *zap.Logger) *FormService {
	return &FormService{repo: repo, assembler: assembler, exporter: exporter, logger: logger}
}

func (s *FormService) Create(ctx context.Context, variant domain.Variant) (*repository.Form, error) {
	f, err := s.repo.CreateForm(ctx, variant)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Form opened", zap.String("form_id", f.ID), zap.String("variant", string(variant)))
	return f, nil
}

func (s *FormService) Get(ctx context.Context, id string) (*repository.Form, error) {
	return s.repo.GetForm(ctx, id)
}

func (s *FormService) List(ctx context.Context, page, size int) ([]repository.Form, int, error) {
	return s.repo.ListForms(ctx, page, size)
}

func (s *FormService) Close(ctx context.Context, id string) error {
	if err := s.repo.DeleteForm(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Form closed", zap.String("form_id", id))
	return nil
}

// UpdateField 写入单个字段（派生字段随之重算）
func (s *FormService) UpdateField(ctx context.Context, id, path string, value any) (*repository.Form, error) {
	return s.repo.UpdateRecord(ctx, id, func(rec domain.Record) (domain.Record, error) {
		return record.Update(rec, path, value)
	})
}

// AppendItem 返回更新后的表单与新元素下标
func (s *FormService) AppendItem(ctx context.Context, id, listPath string) (*repository.Form, int, error) {
	var index int
	f, err := s.repo.UpdateRecord(ctx, id, func(rec domain.Record) (domain.Record, error) {
		next, i, err := record.AppendItem(rec, listPath)
		index = i
		return next, err
	})
	if err != nil {
		return nil, 0, err
	}
	return f, index, nil
}

func (s *FormService) RemoveItem(ctx context.Context, id, listPath string, index int) (*repository.Form, error) {
	return s.repo.UpdateRecord(ctx, id, func(rec domain.Record) (domain.Record, error) {
		return record.RemoveItem(rec, listPath, index)
	})
}

// ImportTable 用导入的表格替换 itemPath 处检验项目的 tableData
func (s *FormService) ImportTable(ctx context.Context, id, itemPath string, rows [][]string) (*repository.Form, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty table", record.ErrInvalidValue)
	}
	f, err := s.UpdateField(ctx, id, itemPath+".tableData", rows)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Lab table imported",
		zap.String("form_id", id),
		zap.String("path", itemPath),
		zap.Int("rows", len(rows)),
	)
	return f, nil
}

func (s *FormService) Preview(ctx context.Context, id string) ([]document.Block, error) {
	f, err := s.repo.GetForm(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.assembler.Assemble(f.Record, f.Variant)
}

func (s *FormService) Export(ctx context.Context, id string) (*document.File, error) {
	f, err := s.repo.GetForm(ctx, id)
	if err != nil {
		return nil, err
	}
	file, err := s.exporter.Export(f.Record, f.Variant)
	if err != nil {
		s.logger.Error("Export failed", zap.String("form_id", id), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Form exported",
		zap.String("form_id", id),
		zap.String("file", file.Name),
		zap.Int("bytes", len(file.Content)),
	)
	return file, nil
}
