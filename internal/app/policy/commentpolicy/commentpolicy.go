// Package commentpolicy decides who may change a comment.
package commentpolicy

import (
	"errors"

	"github.com/dalemusser/taskboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotAuthor: only the author edits or deletes a comment.
var ErrNotAuthor = errors.New("only the author can modify this comment")

// CanModify allows edit and delete by the comment's author only. Project
// roles, including owner and global admin, do not override it.
func CanModify(c models.Comment, userID primitive.ObjectID) error {
	if c.AuthorID != userID {
		return ErrNotAuthor
	}
	return nil
}
