package services

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"fieldtrack-http-service/internal/infrastructure/config"
	"fieldtrack-http-service/pkg/logger"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// 主题常量
const (
	// 按用户推送警报的主题模板
	TopicUserAlerts = "fieldtrack/users/%d/alerts"

	// 全员警报广播主题
	TopicAlertBroadcast = "fieldtrack/alerts"

	// 系统消息主题
	TopicSystemMessage = "fieldtrack/system"
)

// PushMessage 推送消息基础结构
type PushMessage struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// InterfaceMQTTService 定义MQTT推送服务接口
type InterfaceMQTTService interface {
	Connect() error
	Disconnect()
	PublishAlertToUser(userID uint, payload interface{}) error
	PublishAlertBroadcast(payload interface{}) error
	PublishSystemMessage(messageType string, payload interface{}) error
	IsConnected() bool
}

// MQTTService MQTT推送通道的实现
type MQTTService struct {
	Config         *config.Config
	Client         mqtt.Client
	connected      bool
	connectedMutex sync.RWMutex // 保护connected字段的读写
	publishMutex   sync.Mutex   // 保护消息发布
}

// NewMQTTService 创建新的MQTT推送服务
func NewMQTTService(cfg *config.Config) InterfaceMQTTService {
	return &MQTTService{
		Config: cfg,
	}
}

// Connect 连接MQTT服务器
func (s *MQTTService) Connect() error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.Config.MQTTBrokerURL).
		SetClientID(s.Config.MQTTClientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(30 * time.Second).
		SetConnectTimeout(10 * time.Second)

	if s.Config.MQTTUsername != "" {
		opts.SetUsername(s.Config.MQTTUsername)
		opts.SetPassword(s.Config.MQTTPassword)
	}

	if s.Config.MQTTSSLEnabled {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.setConnected(false)
		logger.Warning("MQTT连接断开: %v", err)
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		s.setConnected(true)
		logger.Info("MQTT连接成功: %s", s.Config.MQTTBrokerURL)
	})

	s.Client = mqtt.NewClient(opts)

	token := s.Client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return errors.New("MQTT连接超时")
	}
	if token.Error() != nil {
		return token.Error()
	}

	s.setConnected(true)
	return nil
}

// Disconnect 断开MQTT连接
func (s *MQTTService) Disconnect() {
	if s.Client != nil && s.Client.IsConnected() {
		s.Client.Disconnect(250)
	}
	s.setConnected(false)
}

// IsConnected 返回当前连接状态
func (s *MQTTService) IsConnected() bool {
	s.connectedMutex.RLock()
	defer s.connectedMutex.RUnlock()
	return s.connected
}

func (s *MQTTService) setConnected(v bool) {
	s.connectedMutex.Lock()
	defer s.connectedMutex.Unlock()
	s.connected = v
}

// PublishAlertToUser 向指定用户的警报主题发布消息
func (s *MQTTService) PublishAlertToUser(userID uint, payload interface{}) error {
	topic := fmt.Sprintf(TopicUserAlerts, userID)
	return s.publish(topic, PushMessage{
		Type:      "emergency_alert",
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	})
}

// PublishAlertBroadcast 向广播主题发布警报
func (s *MQTTService) PublishAlertBroadcast(payload interface{}) error {
	return s.publish(TopicAlertBroadcast, PushMessage{
		Type:      "emergency_alert",
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	})
}

// PublishSystemMessage 发布系统消息
func (s *MQTTService) PublishSystemMessage(messageType string, payload interface{}) error {
	return s.publish(TopicSystemMessage, PushMessage{
		Type:      messageType,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	})
}

// publish 序列化并发布消息
func (s *MQTTService) publish(topic string, msg PushMessage) error {
	if !s.IsConnected() {
		return errors.New("MQTT未连接")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	s.publishMutex.Lock()
	defer s.publishMutex.Unlock()

	token := s.Client.Publish(topic, byte(s.Config.MQTTQoS), s.Config.MQTTRetained, data)
	if !token.WaitTimeout(5 * time.Second) {
		return errors.New("MQTT发布超时")
	}
	return token.Error()
}
