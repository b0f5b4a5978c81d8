package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/clickhouse"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/generator"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/models"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/sink"
)

const (
	ordersTopic = "orders"
	usersTopic  = "users"

	ordersTable   = "orders"
	dedupTable    = "orders_glassflow"
	enrichedTable = "orders_enriched"

	orderKey = "order_id"
	userKey  = "user_id"

	glassflowUI = "http://localhost:8080"
)

var orderColumns = []string{"order_id", "user_id", "product_id", "quantity", "price", "created_at"}

var ordersSchema = map[string]any{
	"order_id":   "$uuid",
	"user_id":    "$uuid",
	"product_id": "$uuid",
	"quantity":   "$intrange(1, 10)",
	"price":      "$price(1, 100)",
	"created_at": "$datetime(%Y-%m-%d %H:%M:%S)",
}

var usersSchema = map[string]any{
	"user_id":      "$uuid",
	"name":         "$name",
	"email":        "$email",
	"phone_number": "$phone_number",
	"address":      "$address",
	"city":         "$city",
	"zipcode":      "$zipcode",
	"country":      "$country",
	"created_at":   "$datetime(%Y-%m-%d %H:%M:%S)",
}

// Credenciales que se cargan en la UI de GlassFlow; el broker es el de la red de docker.
var kafkaUICredentials = [][2]string{
	{"Bootstrap Servers", "kafka:9093"},
	{"Security Protocol", "PLAINTEXT"},
	{"Authentication Method", "No Authentication"},
	{"Topic", ordersTopic},
}

type WalkthroughOptions struct {
	Brokers    []string
	ClickHouse models.SinkConfig
	NumRecords int
	JoinKeys   int
	RPS        int
	Ratio      float64
	Seed       uint64
	// Part limita la ejecución a una parte (1-3); 0 corre todas.
	Part int
}

// RunWalkthrough muestra en tres partes el problema de los duplicados en ClickHouse,
// la solución con un pipeline de deduplicación y el enriquecimiento con un join.
func (d *Demo) RunWalkthrough(ctx context.Context, opts WalkthroughOptions) error {
	if opts.Part < 0 || opts.Part > 3 {
		return fmt.Errorf("part must be between 1 and 3, got %d", opts.Part)
	}
	if opts.JoinKeys <= 0 {
		return errors.New("join-keys must be greater than 0")
	}

	orders, err := generator.ParseSchema(ordersSchema)
	if err != nil {
		return err
	}
	users, err := generator.ParseSchema(usersSchema)
	if err != nil {
		return err
	}

	params := models.ConnectionParams{Brokers: opts.Brokers, Protocol: "PLAINTEXT"}

	var wh Warehouse
	if opts.Part != 3 {
		wh, err = d.openWarehouse(ctx, opts.ClickHouse)
		if err != nil {
			return fmt.Errorf("connect clickhouse: %w", err)
		}
		defer wh.Close()
	}

	w := &walkthrough{demo: d, opts: opts, orders: orders, users: users, params: params, wh: wh}

	if opts.Part == 0 || opts.Part == 1 {
		d.console.Title("Part 1: Deduplication Problem")
		if err := w.part1(ctx); err != nil {
			return err
		}
	}

	if opts.Part == 0 || opts.Part == 2 {
		d.console.Title("Part 2: Solution with GlassFlow")
		if err := w.part2(ctx); err != nil {
			return err
		}
	}

	if opts.Part == 0 || opts.Part == 3 {
		d.console.Title("Part 3: Enrich Data with Joins")
		if err := w.part3(ctx); err != nil {
			return err
		}
	}

	d.pushMetrics(ctx)

	return nil
}

type walkthrough struct {
	demo   *Demo
	opts   WalkthroughOptions
	orders *generator.Schema
	users  *generator.Schema
	params models.ConnectionParams
	wh     Warehouse
}

func (w *walkthrough) duplicatedOrders(seedOffset uint64) (*generator.Generator, error) {
	return generator.New(w.orders, generator.Options{
		NumRecords: w.opts.NumRecords,
		RPS:        w.opts.RPS,
		Seed:       derivedSeed(w.opts.Seed, seedOffset),
		Duplication: &generator.DuplicationOptions{
			Ratio:      w.opts.Ratio,
			KeyField:   orderKey,
			TimeWindow: time.Hour,
		},
	})
}

// part1 inserta eventos con duplicados directo en una tabla ReplacingMergeTree.
func (w *walkthrough) part1(ctx context.Context) error {
	d := w.demo

	if err := w.wh.CreateOrdersTable(ctx, ordersTable); err != nil {
		return err
	}

	gen, err := w.duplicatedOrders(0)
	if err != nil {
		return err
	}

	d.console.Println("Generating events with duplicates and insert them into ClickHouse ...")

	chSink := sink.NewClickHouseSink(w.wh, ordersTable, orderColumns,
		map[string]sink.Converter{"created_at": sink.DateTimeConverter(time.DateTime)},
		clickhouse.DefaultInsertBatchSize)

	stop := d.console.Spinner("Inserting events into ClickHouse...")
	stats, err := gen.Run(ctx, chSink)
	stop()
	if err != nil {
		return fmt.Errorf("insert events into %s: %w", ordersTable, err)
	}
	if err := chSink.Close(); err != nil {
		return err
	}

	d.logger.Info(ctx, "Eventos insertados en ClickHouse", "table", ordersTable,
		"events", stats.NumRecords, "duplicates", stats.TotalDuplicates)

	if err := w.checkDuplicates(ctx, ordersTable, orderKey); err != nil {
		return err
	}

	d.console.Println("As you can see, ReplacingMergeTree manages to remove some duplicates, but not all of them.")
	return nil
}

// part2 prepara el topic orders, espera a que el usuario cree el pipeline de
// deduplicación en la UI y publica los mismos eventos duplicados en Kafka.
func (w *walkthrough) part2(ctx context.Context) error {
	d := w.demo

	factory, err := d.openSinkFactory(w.params)
	if err != nil {
		return fmt.Errorf("create kafka sink: %w", err)
	}
	defer factory.Close()

	if err := w.prepareTopic(ctx, factory, ordersTopic, orderKey, w.orders); err != nil {
		return err
	}

	d.console.Highlight("\nGo to %s to create the deduplication pipeline.\n", glassflowUI)
	d.console.Printf("Connect the kafka topic %s to the clickhouse table %s. Here are the Kafka credentials:\n\n",
		ordersTopic, dedupTable)
	d.console.KeyValues(kafkaUICredentials)

	if err := d.console.WaitForEnter("\nOnce created, press enter to continue."); err != nil {
		return err
	}

	gen, err := w.duplicatedOrders(1)
	if err != nil {
		return err
	}

	stop := d.console.Spinner("Generating events with duplicates and insert them into Kafka ...")
	_, err = d.publishAll(ctx, factory, []publishPlan{{topic: ordersTopic, keyField: orderKey, gen: gen}})
	stop()
	if err != nil {
		return err
	}

	if err := w.checkDuplicates(ctx, dedupTable, orderKey); err != nil {
		return err
	}

	d.console.Println("As you can see, the deduplication pipeline manages to remove all duplicates.")
	return nil
}

// part3 publica usuarios y órdenes que comparten user_id para el pipeline de join.
func (w *walkthrough) part3(ctx context.Context) error {
	d := w.demo

	factory, err := d.openSinkFactory(w.params)
	if err != nil {
		return fmt.Errorf("create kafka sink: %w", err)
	}
	defer factory.Close()

	if err := w.prepareTopic(ctx, factory, usersTopic, userKey, w.users); err != nil {
		return err
	}

	d.console.Highlight("\nGo to %s to create the join pipeline (delete the previous pipeline in order to create a new one).\n",
		glassflowUI)
	d.console.Printf("Connect the kafka left topic %s and right topic %s to the clickhouse table %s. Here are the Kafka credentials:\n\n",
		ordersTopic, usersTopic, enrichedTable)
	d.console.KeyValues(kafkaUICredentials)

	if err := d.console.WaitForEnter("\nOnce created, press enter to continue."); err != nil {
		return err
	}

	keys := generator.GenerateKeys(w.opts.JoinKeys, derivedSeed(w.opts.Seed, 4))

	// los usuarios van a un décimo del ritmo de las órdenes
	usersRPS := 0
	if w.opts.RPS > 0 {
		usersRPS = max(1, w.opts.RPS/10)
	}

	usersGen, err := generator.New(w.users, generator.Options{
		NumRecords:  w.opts.JoinKeys,
		RPS:         usersRPS,
		Seed:        derivedSeed(w.opts.Seed, 5),
		KeyOverride: &generator.KeyOverride{Field: userKey, Keys: keys},
	})
	if err != nil {
		return err
	}

	ordersGen, err := generator.New(w.orders, generator.Options{
		NumRecords:  w.opts.NumRecords,
		RPS:         w.opts.RPS,
		Seed:        derivedSeed(w.opts.Seed, 6),
		KeyOverride: &generator.KeyOverride{Field: userKey, Keys: keys},
	})
	if err != nil {
		return err
	}

	stop := d.console.Spinner("Generating user events ...")
	_, err = d.publishAll(ctx, factory, []publishPlan{{topic: usersTopic, keyField: userKey, gen: usersGen}})
	stop()
	if err != nil {
		return err
	}

	stop = d.console.Spinner("Generating order events ...")
	_, err = d.publishAll(ctx, factory, []publishPlan{{topic: ordersTopic, keyField: userKey, gen: ordersGen}})
	stop()
	if err != nil {
		return err
	}

	d.console.Printf("Go to your ClickHouse instance and check the table %s to see the enriched data.\n", enrichedTable)
	return nil
}

// prepareTopic crea el topic y publica un evento de ejemplo para que la UI pueda
// inferir el esquema.
func (w *walkthrough) prepareTopic(ctx context.Context, factory sink.SinkFactory, topic string,
	keyField string, schema *generator.Schema) error {

	d := w.demo

	stop := d.console.Spinner(fmt.Sprintf("Creating kafka topic `%s` ...", topic))
	defer stop()

	if _, err := d.createTopics(ctx, w.params, []string{topic}); err != nil {
		return err
	}

	sample, err := generator.New(schema, generator.Options{NumRecords: 1, Seed: derivedSeed(w.opts.Seed, 3)})
	if err != nil {
		return err
	}

	_, err = d.publishAll(ctx, factory, []publishPlan{{topic: topic, keyField: keyField, gen: sample}})
	return err
}

func (w *walkthrough) checkDuplicates(ctx context.Context, table string, column string) error {
	total, err := w.wh.Count(ctx, table)
	if err != nil {
		return err
	}

	unique, err := w.wh.CountDistinct(ctx, table, column)
	if err != nil {
		return err
	}

	d := w.demo
	d.metrics.SetRowsAdded(table, int64(total))

	d.console.Printf("\nTotal: %d\n", total)
	d.console.Printf("Unique: %d\n", unique)
	d.console.Printf("Percentage of duplicates: %.2f%%\n\n", duplicatePercent(total, unique))

	return nil
}

func duplicatePercent(total, unique uint64) float64 {
	if total == 0 || unique >= total {
		return 0
	}
	return 100 * float64(total-unique) / float64(total)
}
