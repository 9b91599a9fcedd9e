package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/sjperalta/roimob-api/internal/repository"
)

type ClientService struct {
	repo  repository.ClientRepository
	audit *AuditService
}

func NewClientService(repo repository.ClientRepository, audit *AuditService) *ClientService {
	return &ClientService{repo: repo, audit: audit}
}

func (s *ClientService) FindByID(ctx context.Context, meta RequestMeta, id uint) (*models.Client, error) {
	client, err := s.repo.FindByID(ctx, meta.UserID, id)
	if err != nil {
		return nil, notFound(err)
	}
	return client, nil
}

func (s *ClientService) List(ctx context.Context, meta RequestMeta, query *repository.ListQuery) ([]models.Client, int64, error) {
	return s.repo.List(ctx, meta.UserID, query)
}

func (s *ClientService) Create(ctx context.Context, meta RequestMeta, client *models.Client) error {
	client.Name = strings.TrimSpace(client.Name)
	if client.Name == "" {
		return fmt.Errorf("%w: nome é obrigatório", ErrInvalidInput)
	}
	client.ID = 0
	client.UserID = meta.UserID
	client.Email = trimOptional(client.Email)

	if err := s.repo.Create(ctx, client); err != nil {
		return err
	}
	s.audit.Log(ctx, meta, models.AuditCreate, models.EntityClient, client.ID, "Cliente criado: "+client.Name)
	return nil
}

// Update applies the fields that were sent; nil optional fields keep their stored value
func (s *ClientService) Update(ctx context.Context, meta RequestMeta, id uint, changes *models.Client) (*models.Client, error) {
	existing, err := s.FindByID(ctx, meta, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(changes.Name); name != "" {
		existing.Name = name
	}
	if changes.Email != nil {
		existing.Email = trimOptional(changes.Email)
	}
	if changes.Phone != nil {
		existing.Phone = changes.Phone
	}
	if changes.Company != nil {
		existing.Company = changes.Company
	}
	if changes.Notes != nil {
		existing.Notes = changes.Notes
	}

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, meta, models.AuditUpdate, models.EntityClient, existing.ID, "Cliente atualizado: "+existing.Name)
	return existing, nil
}

// Delete refuses clients that still have projections
func (s *ClientService) Delete(ctx context.Context, meta RequestMeta, id uint) error {
	client, err := s.FindByID(ctx, meta, id)
	if err != nil {
		return err
	}
	n, err := s.repo.CountProjections(ctx, client.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %d projeções", ErrInUse, n)
	}
	if err := s.repo.Delete(ctx, meta.UserID, client.ID); err != nil {
		return notFound(err)
	}
	s.audit.Log(ctx, meta, models.AuditDelete, models.EntityClient, client.ID, "Cliente excluído: "+client.Name)
	return nil
}

type PropertyService struct {
	repo  repository.PropertyRepository
	audit *AuditService
}

func NewPropertyService(repo repository.PropertyRepository, audit *AuditService) *PropertyService {
	return &PropertyService{repo: repo, audit: audit}
}

var propertyTypes = map[string]bool{
	models.PropertyTypeApartment:  true,
	models.PropertyTypeHouse:      true,
	models.PropertyTypeCommercial: true,
	models.PropertyTypeLand:       true,
}

func (s *PropertyService) FindByID(ctx context.Context, meta RequestMeta, id uint) (*models.Property, error) {
	property, err := s.repo.FindByID(ctx, meta.UserID, id)
	if err != nil {
		return nil, notFound(err)
	}
	return property, nil
}

func (s *PropertyService) List(ctx context.Context, meta RequestMeta, query *repository.ListQuery) ([]models.Property, int64, error) {
	return s.repo.List(ctx, meta.UserID, query)
}

func (s *PropertyService) Create(ctx context.Context, meta RequestMeta, property *models.Property) error {
	property.Name = strings.TrimSpace(property.Name)
	if property.Name == "" {
		return fmt.Errorf("%w: nome é obrigatório", ErrInvalidInput)
	}
	if property.Type == "" {
		property.Type = models.PropertyTypeApartment
	}
	if !propertyTypes[property.Type] {
		return fmt.Errorf("%w: tipo de imóvel %q", ErrInvalidInput, property.Type)
	}
	if property.Area != nil && *property.Area < 0 {
		return fmt.Errorf("%w: área não pode ser negativa", ErrInvalidInput)
	}
	property.ID = 0
	property.UserID = meta.UserID

	if err := s.repo.Create(ctx, property); err != nil {
		return err
	}
	s.audit.Log(ctx, meta, models.AuditCreate, models.EntityProperty, property.ID, "Imóvel criado: "+property.Name)
	return nil
}

// Update applies the fields that were sent; nil optional fields keep their stored value
func (s *PropertyService) Update(ctx context.Context, meta RequestMeta, id uint, changes *models.Property) (*models.Property, error) {
	existing, err := s.FindByID(ctx, meta, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(changes.Name); name != "" {
		existing.Name = name
	}
	if changes.Type != "" {
		if !propertyTypes[changes.Type] {
			return nil, fmt.Errorf("%w: tipo de imóvel %q", ErrInvalidInput, changes.Type)
		}
		existing.Type = changes.Type
	}
	if changes.Area != nil {
		if *changes.Area < 0 {
			return nil, fmt.Errorf("%w: área não pode ser negativa", ErrInvalidInput)
		}
		existing.Area = changes.Area
	}
	for _, f := range []struct{ dst, src **string }{
		{&existing.Unit, &changes.Unit},
		{&existing.Description, &changes.Description},
		{&existing.WebsiteURL, &changes.WebsiteURL},
		{&existing.Address, &changes.Address},
		{&existing.Neighborhood, &changes.Neighborhood},
		{&existing.City, &changes.City},
		{&existing.State, &changes.State},
		{&existing.ZipCode, &changes.ZipCode},
	} {
		if *f.src != nil {
			*f.dst = *f.src
		}
	}

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, meta, models.AuditUpdate, models.EntityProperty, existing.ID, "Imóvel atualizado: "+existing.Name)
	return existing, nil
}

// Delete refuses properties that still have projections
func (s *PropertyService) Delete(ctx context.Context, meta RequestMeta, id uint) error {
	property, err := s.FindByID(ctx, meta, id)
	if err != nil {
		return err
	}
	n, err := s.repo.CountProjections(ctx, property.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %d projeções", ErrInUse, n)
	}
	if err := s.repo.Delete(ctx, meta.UserID, property.ID); err != nil {
		return notFound(err)
	}
	s.audit.Log(ctx, meta, models.AuditDelete, models.EntityProperty, property.ID, "Imóvel excluído: "+property.Name)
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
