package service

import (
	"context"

	"membership-backend/internal/domain"
	"membership-backend/internal/repository"
)

type notificationService struct {
	notificationRepo repository.NotificationRepository
}

func NewNotificationService(notificationRepo repository.NotificationRepository) NotificationService {
	return &notificationService{notificationRepo: notificationRepo}
}

func (s *notificationService) GetNotifications(ctx context.Context, memberID int32, page, pageSize int32) ([]domain.Notification, int32, error) {
	limit, offset := pagination(page, pageSize)
	return s.notificationRepo.List(ctx, memberID, limit, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, memberID, notificationID int32) error {
	return s.notificationRepo.MarkAsRead(ctx, notificationID, memberID)
}

func (s *notificationService) UnreadCount(ctx context.Context, memberID int32) (int32, error) {
	return s.notificationRepo.CountUnread(ctx, memberID)
}
