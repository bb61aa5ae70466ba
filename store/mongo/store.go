package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anjiri1684/tutor_desk/models"
	"github.com/anjiri1684/tutor_desk/store"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection name constants.
const (
	colStudents = "students"
	colLessons  = "lessons"
	colPacks    = "coursePacks"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store on a MongoDB database.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
}

type Option func(*Store)

// WithTransactions makes WithinTx run inside a session transaction. Requires a
// replica set or sharded cluster.
func WithTransactions(enabled bool) Option {
	return func(s *Store) { s.transactions = enabled }
}

func New(client *mongo.Client, database string, opts ...Option) *Store {
	s := &Store{
		client: client,
		db:     client.Database(database),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the collection indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for col, indexes := range migrationIndexes() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// WithinTx uses a session transaction when enabled. Otherwise fn runs directly
// and a failure part way leaves earlier writes in place.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	if !s.transactions {
		return fn(ctx, s)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx, s)
	})
	return err
}

// ==================== Students ====================

func (s *Store) CreateStudent(ctx context.Context, st *models.Student) error {
	if _, err := s.db.Collection(colStudents).InsertOne(ctx, toStudentModel(st)); err != nil {
		return fmt.Errorf("mongo: create student: %w", err)
	}
	return nil
}

func (s *Store) GetStudent(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	var m studentModel
	err := s.db.Collection(colStudents).FindOne(ctx, bson.M{"_id": id.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("mongo: get student: %w", err)
	}
	return fromStudentModel(&m)
}

func (s *Store) ListStudents(ctx context.Context) ([]models.Student, error) {
	var ms []studentModel
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if err := s.findAll(ctx, colStudents, bson.M{}, opts, &ms); err != nil {
		return nil, fmt.Errorf("mongo: list students: %w", err)
	}

	students := make([]models.Student, 0, len(ms))
	for i := range ms {
		st, err := fromStudentModel(&ms[i])
		if err != nil {
			return nil, err
		}
		students = append(students, *st)
	}
	return students, nil
}

func (s *Store) UpdateStudent(ctx context.Context, id uuid.UUID, upd models.StudentUpdate) error {
	res, err := s.db.Collection(colStudents).UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": studentFields(upd)},
	)
	if err != nil {
		return fmt.Errorf("mongo: update student: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func studentFields(upd models.StudentUpdate) bson.M {
	fields := bson.M{"updatedAt": time.Now().UTC()}
	if upd.Name != nil {
		fields["name"] = *upd.Name
	}
	if upd.Rate != nil {
		fields["rate"] = *upd.Rate
	}
	if upd.Declared != nil {
		fields["declared"] = *upd.Declared
	}
	if upd.Archived != nil {
		fields["archived"] = *upd.Archived
	}
	if upd.CourseDay != nil {
		fields["courseDay"] = models.Optional(*upd.CourseDay)
	}
	if upd.CourseHour != nil {
		fields["courseHour"] = models.Optional(*upd.CourseHour)
	}
	if upd.Phone != nil {
		fields["phone"] = models.Optional(*upd.Phone)
	}
	if upd.Address != nil {
		fields["address"] = models.Optional(*upd.Address)
	}
	return fields
}

func (s *Store) DeleteStudent(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.Collection(colStudents).DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("mongo: delete student: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ==================== Lessons ====================

func lessonFilter(f store.LessonFilter) bson.M {
	filter := bson.M{}
	if f.StudentID != nil {
		filter["studentId"] = f.StudentID.String()
	}
	if f.PackID != nil {
		filter["packId"] = f.PackID.String()
	}
	if len(f.IDs) > 0 {
		ids := make(bson.A, 0, len(f.IDs))
		for _, id := range f.IDs {
			ids = append(ids, id.String())
		}
		filter["_id"] = bson.M{"$in": ids}
	}
	return filter
}

func (s *Store) CreateLesson(ctx context.Context, l *models.Lesson) error {
	if _, err := s.db.Collection(colLessons).InsertOne(ctx, toLessonModel(l)); err != nil {
		return fmt.Errorf("mongo: create lesson: %w", err)
	}
	return nil
}

func (s *Store) GetLesson(ctx context.Context, id uuid.UUID) (*models.Lesson, error) {
	var m lessonModel
	err := s.db.Collection(colLessons).FindOne(ctx, bson.M{"_id": id.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("mongo: get lesson: %w", err)
	}
	return fromLessonModel(&m)
}

func (s *Store) ListLessons(ctx context.Context, f store.LessonFilter) ([]models.Lesson, error) {
	var ms []lessonModel
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	if err := s.findAll(ctx, colLessons, lessonFilter(f), opts, &ms); err != nil {
		return nil, fmt.Errorf("mongo: list lessons: %w", err)
	}

	lessons := make([]models.Lesson, 0, len(ms))
	for i := range ms {
		l, err := fromLessonModel(&ms[i])
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, *l)
	}
	return lessons, nil
}

func (s *Store) CountLessons(ctx context.Context, f store.LessonFilter) (int64, error) {
	n, err := s.db.Collection(colLessons).CountDocuments(ctx, lessonFilter(f))
	if err != nil {
		return 0, fmt.Errorf("mongo: count lessons: %w", err)
	}
	return n, nil
}

func (s *Store) UpdateLessons(ctx context.Context, f store.LessonFilter, p store.LessonPatch) (int64, error) {
	fields := bson.M{"updatedAt": time.Now().UTC()}
	if p.IsPaid != nil {
		fields["isPaid"] = *p.IsPaid
	}
	switch {
	case p.ClearPack:
		fields["packId"] = nil
	case p.PackID != nil:
		fields["packId"] = p.PackID.String()
	}

	res, err := s.db.Collection(colLessons).UpdateMany(ctx, lessonFilter(f), bson.M{"$set": fields})
	if err != nil {
		return 0, fmt.Errorf("mongo: update lessons: %w", err)
	}
	return res.MatchedCount, nil
}

func (s *Store) DeleteLesson(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.Collection(colLessons).DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("mongo: delete lesson: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteLessons(ctx context.Context, f store.LessonFilter) (int64, error) {
	if f.IsEmpty() {
		return 0, errors.New("mongo: refusing to delete lessons without a filter")
	}
	res, err := s.db.Collection(colLessons).DeleteMany(ctx, lessonFilter(f))
	if err != nil {
		return 0, fmt.Errorf("mongo: delete lessons: %w", err)
	}
	return res.DeletedCount, nil
}

// ==================== Packs ====================

func packFilter(f store.PackFilter) bson.M {
	filter := bson.M{}
	if f.StudentID != nil {
		filter["studentId"] = f.StudentID.String()
	}
	return filter
}

func (s *Store) CreatePack(ctx context.Context, p *models.CoursePack) error {
	if _, err := s.db.Collection(colPacks).InsertOne(ctx, toPackModel(p)); err != nil {
		return fmt.Errorf("mongo: create pack: %w", err)
	}
	return nil
}

func (s *Store) GetPack(ctx context.Context, id uuid.UUID) (*models.CoursePack, error) {
	var m packModel
	err := s.db.Collection(colPacks).FindOne(ctx, bson.M{"_id": id.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("mongo: get pack: %w", err)
	}
	return fromPackModel(&m)
}

func (s *Store) ListPacks(ctx context.Context, f store.PackFilter) ([]models.CoursePack, error) {
	var ms []packModel
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if err := s.findAll(ctx, colPacks, packFilter(f), opts, &ms); err != nil {
		return nil, fmt.Errorf("mongo: list packs: %w", err)
	}

	packs := make([]models.CoursePack, 0, len(ms))
	for i := range ms {
		p, err := fromPackModel(&ms[i])
		if err != nil {
			return nil, err
		}
		packs = append(packs, *p)
	}
	return packs, nil
}

func (s *Store) SetPackRemaining(ctx context.Context, id uuid.UUID, remaining int) error {
	res, err := s.db.Collection(colPacks).UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"remainingLessons": remaining, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("mongo: set pack remaining: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePack(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.Collection(colPacks).DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("mongo: delete pack: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePacks(ctx context.Context, f store.PackFilter) (int64, error) {
	if f.StudentID == nil {
		return 0, errors.New("mongo: refusing to delete packs without a filter")
	}
	res, err := s.db.Collection(colPacks).DeleteMany(ctx, packFilter(f))
	if err != nil {
		return 0, fmt.Errorf("mongo: delete packs: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *Store) findAll(ctx context.Context, col string, filter bson.M, opts *options.FindOptionsBuilder, out interface{}) error {
	cur, err := s.db.Collection(col).Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	return cur.All(ctx, out)
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colStudents: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "archived", Value: 1}}},
		},
		colLessons: {
			{Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "packId", Value: 1}}},
		},
		colPacks: {
			{Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
}
