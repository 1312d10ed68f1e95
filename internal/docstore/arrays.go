package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resumecraft/internal/database"
)

// 数组成员增删在存储侧完成：事务 + 行锁（PostgreSQL）串行化同一文档上的
// 并发写，成员操作因此是幂等且可交换的；去重在写入时保证，不依赖存储结构。

// AddToUserCollections 把模板 id 加入用户的 collections，已存在则不变。
func (s *Store) AddToUserCollections(ctx context.Context, uid, templateID string) error {
	err := s.mutateUserArray(ctx, uid, "collections", func(profile *database.UserProfile) ([]byte, error) {
		members, err := stringMembers(profile.Collections)
		if err != nil {
			return nil, err
		}
		return mustEncode(addMember(members, templateID)), nil
	})
	if err != nil {
		return fmt.Errorf("add %q to collections of %q: %w", templateID, uid, err)
	}
	s.publishChange(ctx, userChangeChannel(uid))
	return nil
}

// RemoveFromUserCollections 把模板 id 从用户的 collections 移除，不存在则不变。
func (s *Store) RemoveFromUserCollections(ctx context.Context, uid, templateID string) error {
	err := s.mutateUserArray(ctx, uid, "collections", func(profile *database.UserProfile) ([]byte, error) {
		members, err := stringMembers(profile.Collections)
		if err != nil {
			return nil, err
		}
		return mustEncode(removeMember(members, templateID)), nil
	})
	if err != nil {
		return fmt.Errorf("remove %q from collections of %q: %w", templateID, uid, err)
	}
	s.publishChange(ctx, userChangeChannel(uid))
	return nil
}

// AddToUserResumes 把草稿 id 记入用户档案的冗余简历列表，已存在则不变。
// 权威数据在 ResumeDraft 表，该列表仅供档案侧一次性读取。
func (s *Store) AddToUserResumes(ctx context.Context, uid, resumeID string) error {
	err := s.mutateUserArray(ctx, uid, "resumes", func(profile *database.UserProfile) ([]byte, error) {
		members, err := stringMembers(profile.Resumes)
		if err != nil {
			return nil, err
		}
		return mustEncode(addMember(members, resumeID)), nil
	})
	if err != nil {
		return fmt.Errorf("add %q to resumes of %q: %w", resumeID, uid, err)
	}
	return nil
}

// AddToTemplateFavourites 把用户 uid 加入模板的 favourites，已存在则不变。
func (s *Store) AddToTemplateFavourites(ctx context.Context, templateID, uid string) error {
	err := s.mutateTemplateArray(ctx, templateID, func(tpl *database.Template) error {
		members, err := stringMembers(tpl.Favourites)
		if err != nil {
			return err
		}
		tpl.Favourites = mustEncode(addMember(members, uid))
		return nil
	})
	if err != nil {
		return fmt.Errorf("add %q to favourites of %q: %w", uid, templateID, err)
	}
	return nil
}

// RemoveFromTemplateFavourites 把用户 uid 从模板的 favourites 移除。
func (s *Store) RemoveFromTemplateFavourites(ctx context.Context, templateID, uid string) error {
	err := s.mutateTemplateArray(ctx, templateID, func(tpl *database.Template) error {
		members, err := stringMembers(tpl.Favourites)
		if err != nil {
			return err
		}
		tpl.Favourites = mustEncode(removeMember(members, uid))
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove %q from favourites of %q: %w", uid, templateID, err)
	}
	return nil
}

func (s *Store) mutateUserArray(ctx context.Context, uid, column string, mutate func(*database.UserProfile) ([]byte, error)) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var profile database.UserProfile
		if err := q.First(&profile, "uid = ?", uid).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		raw, err := mutate(&profile)
		if err != nil {
			return err
		}
		return tx.Model(&database.UserProfile{}).
			Where("uid = ?", uid).
			Update(column, raw).Error
	})
}

func (s *Store) mutateTemplateArray(ctx context.Context, templateID string, mutate func(*database.Template) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var tpl database.Template
		if err := q.First(&tpl, "id = ?", templateID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := mutate(&tpl); err != nil {
			return err
		}
		return tx.Model(&database.Template{}).
			Where("id = ?", templateID).
			Update("favourites", tpl.Favourites).Error
	})
}

// StringMembers 解码 jsonb 数组字段为字符串切片；空字段视为空集合。
func StringMembers(raw []byte) ([]string, error) {
	return stringMembers(raw)
}

// EncodeStrings 把字符串切片编码为 jsonb 数组字段；nil 编码为空数组。
func EncodeStrings(members []string) []byte {
	return mustEncode(members)
}

func stringMembers(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var members []string
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, fmt.Errorf("decode array field: %w", err)
	}
	return members, nil
}

func addMember(members []string, value string) []string {
	for _, m := range members {
		if m == value {
			return members
		}
	}
	return append(members, value)
}

func removeMember(members []string, value string) []string {
	result := members[:0]
	for _, m := range members {
		if m != value {
			result = append(result, m)
		}
	}
	return result
}

func mustEncode(members []string) []byte {
	if members == nil {
		members = []string{}
	}
	// 字符串切片的 JSON 编码不会失败
	raw, _ := json.Marshal(members)
	return raw
}
