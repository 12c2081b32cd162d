package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"30"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN            string `env:"DSN,required"`
		ConnectTimeout int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout   int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		MaxOpenConns   int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns   int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime    int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	JWT JWTConfig `envPrefix:"JWT_"`
	Email struct {
		SMTP struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host                string `env:"HOST" envDefault:"localhost"`
		Port                int    `env:"PORT" envDefault:"6379"`
		Password            string `env:"PASSWORD,required"`
		ConnectTimeout      int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationExpiration int    `env:"OPERATION_EXPIRATION" envDefault:"10"`
		ResultExpiration    int    `env:"RESULT_EXPIRATION" envDefault:"86400"` // 1 天
	} `envPrefix:"REDIS_"`
	Scheduler SchedulerConfig `envPrefix:"SCHEDULER_"`
}

type JWTConfig struct {
	Expiration int    `env:"EXPIRATION" envDefault:"1209600"` // 14 天
	Secret     string `env:"SECRET,required"`
}

// SchedulerConfig 为排班运行的默认参数，请求中未指定的字段使用这里的值
type SchedulerConfig struct {
	MaxActiveRuns     int `env:"MAX_ACTIVE_RUNS" envDefault:"4"`
	Workers           int `env:"WORKERS" envDefault:"1"`
	ResultRetention   int `env:"RESULT_RETENTION" envDefault:"3600"` // 运行结束后在内存中保留的秒数
	SideEffectTimeout int `env:"SIDE_EFFECT_TIMEOUT" envDefault:"10"`

	// 一次运行中单代种群的格子总数上限，<= 0 表示不限制
	MaxPopulationCells int64 `env:"MAX_POPULATION_CELLS" envDefault:"20000000"`

	PopulationSize          int     `env:"POPULATION_SIZE" envDefault:"150"`
	MaxGenerations          int     `env:"MAX_GENERATIONS" envDefault:"300"`
	CrossoverRate           float64 `env:"CROSSOVER_RATE" envDefault:"0.8"`
	MutationRate            float64 `env:"MUTATION_RATE" envDefault:"0.03"`
	GuidedMutationRate      float64 `env:"GUIDED_MUTATION_RATE" envDefault:"0.1"`
	EliteCount              int     `env:"ELITE_COUNT" envDefault:"2"`
	TournamentSize          int     `env:"TOURNAMENT_SIZE" envDefault:"3"`
	SoftAcceptanceThreshold float64 `env:"SOFT_ACCEPTANCE_THRESHOLD" envDefault:"20"`
	Crossover               string  `env:"CROSSOVER" envDefault:"cell"`
	InitDistribution        string  `env:"INIT_DISTRIBUTION" envDefault:"weighted_off"`
	OffProbability          float64 `env:"OFF_PROBABILITY" envDefault:"0.3"`

	StaffCount                     int     `env:"STAFF_COUNT" envDefault:"10"`
	DayCount                       int     `env:"DAY_COUNT" envDefault:"30"`
	SpecialistIDs                  []int   `env:"SPECIALIST_IDS" envDefault:"0,1,2"`
	MinStaffMorning                int     `env:"MIN_STAFF_MORNING" envDefault:"3"`
	MinStaffAfternoon              int     `env:"MIN_STAFF_AFTERNOON" envDefault:"3"`
	MinStaffNight                  int     `env:"MIN_STAFF_NIGHT" envDefault:"2"`
	MinSpecialistsPerOccupiedShift int     `env:"MIN_SPECIALISTS_PER_SHIFT" envDefault:"1"`
	MaxConsecutiveWorkingDays      int     `env:"MAX_CONSECUTIVE_WORKING_DAYS" envDefault:"6"`
	MaxNightShiftsPerStaff         int     `env:"MAX_NIGHT_SHIFTS" envDefault:"8"`
	MinRestDaysAfterNight          int     `env:"MIN_REST_DAYS_AFTER_NIGHT" envDefault:"1"`
	HardWeight                     float64 `env:"HARD_WEIGHT" envDefault:"1000"`
	SoftWeight                     float64 `env:"SOFT_WEIGHT" envDefault:"10"`
	WorkloadEquityScale            float64 `env:"WORKLOAD_EQUITY_SCALE" envDefault:"3"`
	NightEquityScale               float64 `env:"NIGHT_EQUITY_SCALE" envDefault:"5"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, firstError(err)
	}

	return cfg, nil
}

// LoadSchedulerConfig 只读取 SCHEDULER_ 开头的环境变量
func LoadSchedulerConfig() (*SchedulerConfig, error) {
	cfg := &SchedulerConfig{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "SCHEDULER_"}); err != nil {
		return nil, firstError(err)
	}
	return cfg, nil
}

// LoadJWTConfig 只读取 JWT_ 开头的环境变量，供命令行工具使用
func LoadJWTConfig() (*JWTConfig, error) {
	cfg := &JWTConfig{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "JWT_"}); err != nil {
		return nil, firstError(err)
	}
	return cfg, nil
}

// 只返回第一个错误使得日志更清晰
func firstError(err error) error {
	aggErr := env.AggregateError{}
	if ok := errors.As(err, &aggErr); ok && len(aggErr.Errors) > 0 {
		return aggErr.Errors[0]
	}
	return err
}
