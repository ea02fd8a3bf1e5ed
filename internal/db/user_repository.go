package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"spendwise-backend-go/internal/models"
)

const (
	usersCollection = "users"
	// emailsCollection holds one pointer document per normalized email,
	// keyed by the email itself. Creating it in the same transaction as the
	// user document is what makes "exactly one record per email" hold even
	// when two requests race on a brand-new address: the loser's commit
	// fails with AlreadyExists.
	emailsCollection = "user_emails"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrEmailTaken is returned by Create when the normalized email already has
// a user record. Callers either surface it as a duplicate-email conflict
// (signup) or retry resolution (OAuth reconciliation race recovery).
var ErrEmailTaken = errors.New("email already taken")

// emailPointer is the payload of a user_emails document.
type emailPointer struct {
	UserID string `firestore:"userId"`
}

// firestoreUserRepository implements UserRepository using Firestore.
type firestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a Firestore-backed UserRepository.
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	if client == nil {
		panic("Firestore client is not initialized for UserRepository")
	}
	return &firestoreUserRepository{client: client}
}

// Create inserts a new user together with its email pointer document in one
// transaction. The caller is expected to have lowercased the email already.
// An empty user.ID is assigned a fresh opaque document ID.
func (r *firestoreUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.Email == "" {
		return errors.New("user email cannot be empty for Create operation")
	}
	if user.ID == "" {
		user.ID = r.client.Collection(usersCollection).NewDoc().ID
	}

	userRef := r.client.Collection(usersCollection).Doc(user.ID)
	emailRef := r.client.Collection(emailsCollection).Doc(user.Email)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(emailRef, emailPointer{UserID: user.ID}); err != nil {
			return err
		}
		return tx.Create(userRef, user)
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("user with email '%s' already exists: %w", user.Email, ErrEmailTaken)
		}
		return fmt.Errorf("failed to create user with email '%s': %w", user.Email, err)
	}
	return nil
}

// GetByID retrieves a user document by its opaque ID.
func (r *firestoreUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user with ID '%s': %w", userID, err)
	}
	return decodeUser(docSnap)
}

// GetByEmail retrieves a user by normalized email via the pointer document.
func (r *firestoreUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, errors.New("email cannot be empty for GetByEmail operation")
	}
	ptrSnap, err := r.client.Collection(emailsCollection).Doc(email).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("user with email '%s' not found: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up email '%s': %w", email, err)
	}
	var ptr emailPointer
	if err := ptrSnap.DataTo(&ptr); err != nil {
		return nil, fmt.Errorf("failed to decode email pointer for '%s': %w", email, err)
	}
	return r.GetByID(ctx, ptr.UserID)
}

// GetByGoogleID retrieves the user linked to a Google subject identifier.
func (r *firestoreUserRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	if googleID == "" {
		return nil, errors.New("googleID cannot be empty for GetByGoogleID operation")
	}
	iter := r.client.Collection(usersCollection).
		Where("googleId", "==", googleID).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	docSnap, err := iter.Next()
	if err == iterator.Done {
		return nil, fmt.Errorf("user with googleId '%s' not found: %w", googleID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user by googleId '%s': %w", googleID, err)
	}
	return decodeUser(docSnap)
}

// Update overwrites an existing user document. The service layer always
// passes a complete record it fetched and modified; the email never changes
// here, so the pointer document stays valid.
func (r *firestoreUserRepository) Update(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Update operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(user.ID).Set(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to update user with ID '%s': %w", user.ID, err)
	}
	return nil
}

func decodeUser(docSnap *firestore.DocumentSnapshot) (*models.User, error) {
	var user models.User
	if err := docSnap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user data for ID '%s': %w", docSnap.Ref.ID, err)
	}
	user.ID = docSnap.Ref.ID
	return &user, nil
}
