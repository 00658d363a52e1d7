package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Dan9191/fee-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	studentsCollection = "students"
	paymentsCollection = "payments"
)

// MongoRepository reads student documents. Documents are decoded loosely
// because fee and date fields are written by forms and are not always
// well typed.
type MongoRepository struct {
	client   *mongo.Client
	students *mongo.Collection
	payments *mongo.Collection
}

var _ Store = (*MongoRepository)(nil)

// NewMongoRepository connects to uri and uses database
func NewMongoRepository(ctx context.Context, uri, database string) (*MongoRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	db := client.Database(database)
	return &MongoRepository{
		client:   client,
		students: db.Collection(studentsCollection),
		payments: db.Collection(paymentsCollection),
	}, nil
}

// ListStudents retrieves students matching the filter
func (r *MongoRepository) ListStudents(ctx context.Context, filter StudentFilter) ([]models.StudentRecord, error) {
	query := bson.M{}
	if filter.ClassName != "" {
		query["className"] = filter.ClassName
	}
	if len(filter.IDs) > 0 {
		ids := make([]any, 0, len(filter.IDs))
		for _, id := range filter.IDs {
			ids = append(ids, docID(id))
		}
		query["_id"] = bson.M{"$in": ids}
	}

	opts := options.Find().SetSort(bson.D{{Key: "className", Value: 1}, {Key: "name", Value: 1}})
	cur, err := r.students.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer cur.Close(ctx)

	var students []models.StudentRecord
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode student: %w", err)
		}
		students = append(students, studentFromDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

// GetStudent retrieves a student by id
func (r *MongoRepository) GetStudent(ctx context.Context, id string) (models.StudentRecord, error) {
	var doc bson.M
	err := r.students.FindOne(ctx, bson.M{"_id": docID(id)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.StudentRecord{}, models.ErrNotFound
	}
	if err != nil {
		return models.StudentRecord{}, fmt.Errorf("failed to find student: %w", err)
	}
	return studentFromDoc(doc), nil
}

// MarkReminderSent records the time of a successful reminder
func (r *MongoRepository) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	res, err := r.students.UpdateOne(ctx,
		bson.M{"_id": docID(id)},
		bson.M{"$set": bson.M{"lastReminderSentAt": at}},
	)
	if err != nil {
		return fmt.Errorf("failed to update reminder time: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CollectionTrend sums payments received in the month of now and the month before
func (r *MongoRepository) CollectionTrend(ctx context.Context, now time.Time) (models.CollectionTrend, error) {
	current, last := monthBounds(now)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"paidAt": bson.M{"$gte": last, "$lt": current.AddDate(0, 1, 0)}}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$cond": bson.A{bson.M{"$gte": bson.A{"$paidAt", current}}, "current", "last"}},
			"sum": bson.M{"$sum": "$amount"},
		}}},
	}
	cur, err := r.payments.Aggregate(ctx, pipeline)
	if err != nil {
		return models.CollectionTrend{}, fmt.Errorf("failed to sum payments: %w", err)
	}
	defer cur.Close(ctx)

	var trend models.CollectionTrend
	for cur.Next(ctx) {
		var row bson.M
		if err := cur.Decode(&row); err != nil {
			return models.CollectionTrend{}, fmt.Errorf("failed to decode payment sum: %w", err)
		}
		switch row["_id"] {
		case "current":
			trend.CurrentMonthCollected = models.CoerceAmount(row["sum"])
		case "last":
			trend.LastMonthCollected = models.CoerceAmount(row["sum"])
		}
	}
	return trend, cur.Err()
}

// Close disconnects the client
func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func docID(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func studentFromDoc(doc bson.M) models.StudentRecord {
	return models.StudentRecord{
		ID:                 idString(doc["_id"]),
		Name:               str(doc["name"]),
		ClassName:          str(doc["className"]),
		FatherName:         str(doc["fatherName"]),
		MotherName:         str(doc["motherName"]),
		ContactNumber:      str(doc["contactNumber"]),
		TotalFees:          models.CoerceAmount(doc["totalFees"]),
		FeesPaid:           models.CoerceAmount(doc["feesPaid"]),
		FeeFrequency:       models.ParseFrequency(str(doc["feeFrequency"])),
		EnrollmentDate:     models.CoerceDate(doc["enrollmentDate"]),
		CustomDueDate:      models.CoerceDate(doc["customDueDate"]),
		LastReminderSentAt: models.CoerceDate(doc["lastReminderSentAt"]),
	}
}

func idString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func str(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case int32:
		return strconv.FormatInt(int64(s), 10)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		// numbers entered through forms arrive as doubles
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}
